package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Encode serializes v into HelixDB's deterministic wire format: a one-byte
// Kind tag followed by a Kind-specific payload. This is the "bincoded"
// representation referenced throughout spec §6 — declaration order for
// Object fields is not recoverable from a bare Value (only schema records
// carry declared field order; see pkg/schema for that codec), so Object
// payloads here are written in sorted-key order to keep encoding
// deterministic and round-trip exact regardless of map iteration order.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, byte(v.kind))
	switch v.kind {
	case KindEmpty:
		// no payload
	case KindBoolean:
		if v.b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindString, KindDate, KindUUID:
		buf = appendString(buf, v.str)
	case KindF32, KindF64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.f64))
		buf = append(buf, b[:]...)
	case KindI8, KindI16, KindI32, KindI64, KindI128,
		KindU8, KindU16, KindU32, KindU64, KindU128:
		buf = append(buf, v.i128[:]...)
	case KindArray:
		buf = appendUvarint(buf, uint64(len(v.arr)))
		for _, e := range v.arr {
			enc := Encode(e)
			buf = appendUvarint(buf, uint64(len(enc)))
			buf = append(buf, enc...)
		}
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = appendUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			buf = appendString(buf, k)
			enc := Encode(v.obj[k])
			buf = appendUvarint(buf, uint64(len(enc)))
			buf = append(buf, enc...)
		}
	}
	return buf
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Value, []byte, error) {
	if len(b) == 0 {
		return Value{}, nil, fmt.Errorf("value: decode: empty buffer")
	}
	kind := Kind(b[0])
	rest := b[1:]
	switch kind {
	case KindEmpty:
		return Empty, rest, nil
	case KindBoolean:
		if len(rest) < 1 {
			return Value{}, nil, fmt.Errorf("value: decode: truncated boolean")
		}
		return Bool(rest[0] != 0), rest[1:], nil
	case KindString, KindDate, KindUUID:
		s, rest2, err := readString(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{kind: kind, str: s}, rest2, nil
	case KindF32, KindF64:
		if len(rest) < 8 {
			return Value{}, nil, fmt.Errorf("value: decode: truncated float")
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))
		return Value{kind: kind, f64: f}, rest[8:], nil
	case KindI8, KindI16, KindI32, KindI64, KindI128,
		KindU8, KindU16, KindU32, KindU64, KindU128:
		if len(rest) < 16 {
			return Value{}, nil, fmt.Errorf("value: decode: truncated integer")
		}
		var bytes [16]byte
		copy(bytes[:], rest[:16])
		return Value{kind: kind, i128: bytes}, rest[16:], nil
	case KindArray:
		n, rest2, err := readUvarint(rest)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			elen, r3, err := readUvarint(rest2)
			if err != nil {
				return Value{}, nil, err
			}
			if uint64(len(r3)) < elen {
				return Value{}, nil, fmt.Errorf("value: decode: truncated array element")
			}
			elem, _, err := Decode(r3[:elen])
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, elem)
			rest2 = r3[elen:]
		}
		return ArrayValue(items), rest2, nil
	case KindObject:
		n, rest2, err := readUvarint(rest)
		if err != nil {
			return Value{}, nil, err
		}
		fields := make(map[string]Value, n)
		for i := uint64(0); i < n; i++ {
			key, r3, err := readString(rest2)
			if err != nil {
				return Value{}, nil, err
			}
			elen, r4, err := readUvarint(r3)
			if err != nil {
				return Value{}, nil, err
			}
			if uint64(len(r4)) < elen {
				return Value{}, nil, fmt.Errorf("value: decode: truncated object field")
			}
			elem, _, err := Decode(r4[:elen])
			if err != nil {
				return Value{}, nil, err
			}
			fields[key] = elem
			rest2 = r4[elen:]
		}
		return ObjectValue(fields), rest2, nil
	default:
		return Value{}, nil, fmt.Errorf("value: decode: unknown kind tag %d", kind)
	}
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(b []byte) (string, []byte, error) {
	n, rest, err := readUvarint(b)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, fmt.Errorf("value: decode: truncated string")
	}
	return string(rest[:n]), rest[n:], nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(b []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, fmt.Errorf("value: decode: malformed varint")
	}
	return v, b[n:], nil
}
