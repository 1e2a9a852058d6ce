package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := NewID()
	now := time.Now().UTC().Truncate(time.Second)

	cases := []struct {
		name string
		v    Value
	}{
		{"empty", Empty},
		{"bool_true", Bool(true)},
		{"bool_false", Bool(false)},
		{"string", Str("hello world")},
		{"f64", F64(3.14159)},
		{"i64_negative", I64(-42)},
		{"u64", U64(18446744073709551615)},
		{"u128_id", U128(id)},
		{"uuid", UUIDValue(id)},
		{"date", DateValue(now)},
		{"array", ArrayValue([]Value{I64(1), Str("two"), Bool(true)})},
		{"object", ObjectValue(map[string]Value{
			"name": Str("alice"),
			"age":  I64(30),
		})},
		{"nested", ObjectValue(map[string]Value{
			"tags": ArrayValue([]Value{Str("a"), Str("b")}),
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := Encode(tc.v)
			got, rest, err := Decode(enc)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.True(t, tc.v.Equal(got), "round-trip mismatch: %v vs %v", tc.v, got)
		})
	}
}

func TestIDStringRoundTrip(t *testing.T) {
	id := NewID()
	s := id.String()
	parsed, err := ParseID(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIDBytesRoundTrip(t *testing.T) {
	id := NewID()
	b := id.Bytes()
	require.Len(t, b, 16)
	parsed, err := IDFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIDCompareOrdersByBytes(t *testing.T) {
	a, err := IDFromBytes([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	b, err := IDFromBytes([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestLabelHashDeterministic(t *testing.T) {
	h1 := LabelHash("knows")
	h2 := LabelHash("knows")
	assert.Equal(t, h1, h2)

	h3 := LabelHash("embed")
	assert.NotEqual(t, h1, h3)
}

func TestValueEqualRejectsMismatchedKinds(t *testing.T) {
	assert.False(t, I64(1).Equal(U64(1)), "I64(1) and U64(1) must not compare equal despite same magnitude")
}

func TestValueLessOrdersStrings(t *testing.T) {
	assert.True(t, Str("a").Less(Str("b")))
	assert.False(t, Str("b").Less(Str("a")))
}

func TestToJSON(t *testing.T) {
	v := ObjectValue(map[string]Value{
		"name": Str("bob"),
		"age":  I64(25),
	})
	j := v.ToJSON()
	m, ok := j.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bob", m["name"])
	assert.EqualValues(t, 25, m["age"])
}
