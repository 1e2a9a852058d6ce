package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/value"
)

func personV1() *NodeSchema {
	return &NodeSchema{
		Label:   "Person",
		Version: 1,
		Fields: []Field{
			{Name: "name", Type: value.KindString},
			{Name: "age", Type: value.KindI64},
		},
	}
}

func personV2() *NodeSchema {
	return &NodeSchema{
		Label:   "Person",
		Version: 2,
		Fields: []Field{
			{Name: "full_name", Type: value.KindString},
			{Name: "age", Type: value.KindF64},
		},
	}
}

func TestValidateAllowsRedeclaredLabel(t *testing.T) {
	s := New()
	s.AddNode(&NodeSchema{Label: "Person", Version: 1})
	s.AddNode(&NodeSchema{Label: "Person", Version: 1}) // same label, harmless
	require.NoError(t, s.Validate())
}

func TestValidateRejectsUnknownEdgeEndpoint(t *testing.T) {
	s := New()
	s.AddNode(&NodeSchema{Label: "Person", Version: 1})
	s.AddEdge(&EdgeSchema{
		Label: "Knows", Version: 1,
		From: EndpointRef{Kind: EndpointNode, Label: "Person"},
		To:   EndpointRef{Kind: EndpointNode, Label: "Ghost"},
	})
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestUpgradeNodeRenamesAndCastsField(t *testing.T) {
	s := New()
	s.AddNode(personV1())
	s.AddNode(personV2())
	s.AddMigration(Migration{
		From: 1, To: 2,
		Items: []ItemMigration{
			{
				SourceItem: "Person",
				TargetItem: "Person",
				Properties: []PropertyRemap{
					{SourceField: "name", TargetField: "full_name", Cast: CastNone},
					{SourceField: "age", TargetField: "age", Cast: CastToF64},
				},
			},
		},
	})

	label, version, props, err := s.UpgradeNode("Person", 1, map[string]value.Value{
		"name": value.Str("Ada"),
		"age":  value.I64(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "Person", label)
	assert.Equal(t, uint32(2), version)

	name, ok := props["full_name"].AsString()
	require.True(t, ok)
	assert.Equal(t, "Ada", name)
	_, hasOld := props["name"]
	assert.False(t, hasOld)

	age, ok := props["age"].AsFloat64()
	require.True(t, ok)
	assert.Equal(t, 30.0, age)
}

func TestUpgradeNodeAppliesDefaultWhenFieldAbsent(t *testing.T) {
	s := New()
	s.AddNode(personV1())
	def := value.Str("unknown")
	s.AddMigration(Migration{
		From: 1, To: 2,
		Items: []ItemMigration{
			{
				SourceItem: "Person",
				TargetItem: "Person",
				Properties: []PropertyRemap{
					{SourceField: "nickname", TargetField: "nickname", Default: &def},
				},
			},
		},
	})

	_, _, props, err := s.UpgradeNode("Person", 1, map[string]value.Value{
		"name": value.Str("Ada"),
	})
	require.NoError(t, err)
	nick, ok := props["nickname"].AsString()
	require.True(t, ok)
	assert.Equal(t, "unknown", nick)
}

func TestUpgradeNodeNoMigrationsIsNoop(t *testing.T) {
	s := New()
	s.AddNode(personV1())
	label, version, props, err := s.UpgradeNode("Person", 1, map[string]value.Value{"name": value.Str("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "Person", label)
	assert.Equal(t, uint32(1), version)
	name, _ := props["name"].AsString()
	assert.Equal(t, "Ada", name)
}

func TestUpgradeNodeWalksMultipleSteps(t *testing.T) {
	s := New()
	s.AddNode(&NodeSchema{Label: "Person", Version: 1})
	s.AddNode(&NodeSchema{Label: "Person", Version: 2})
	s.AddNode(&NodeSchema{Label: "Person", Version: 3})
	s.AddMigration(Migration{From: 1, To: 2, Items: []ItemMigration{{SourceItem: "Person", TargetItem: "Person"}}})
	s.AddMigration(Migration{From: 2, To: 3, Items: []ItemMigration{{SourceItem: "Person", TargetItem: "Person"}}})

	_, version, _, err := s.UpgradeNode("Person", 1, map[string]value.Value{})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), version)
}

func TestApplyCastRejectsUnconvertibleValue(t *testing.T) {
	_, err := applyCast(value.ObjectValue(nil), CastToI64)
	require.Error(t, err)
}

func TestCheckValueHonorsOptionalAndRequired(t *testing.T) {
	optional := Field{Name: "nickname", Type: value.KindString, Prefix: PrefixOptional}
	assert.True(t, CheckValue(optional, value.Empty))

	required := Field{Name: "name", Type: value.KindString}
	assert.False(t, CheckValue(required, value.Empty))
	assert.True(t, CheckValue(required, value.Str("Ada")))
	assert.False(t, CheckValue(required, value.I64(1)))
}
