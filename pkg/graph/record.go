package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/value"
)

// Node is one decoded `nodes[id]` record.
type Node struct {
	ID         value.ID
	Label      string
	Version    uint32
	Properties map[string]value.Value
}

// Edge is one decoded `edges[id]` record.
type Edge struct {
	ID         value.ID
	Label      string
	Version    uint32
	From       value.ID
	FromKind   schema.EndpointKind
	To         value.ID
	ToKind     schema.EndpointKind
	Properties map[string]value.Value
}

// encodeFields writes version followed by each declared field in
// declaration order, a presence byte then the encoded value — the
// bincode-style, declaration-order wire layout spec §6 requires (as opposed
// to value.Encode's sorted-key Object form, which is only used for bare,
// schema-less Values).
func encodeFields(version uint32, fields []schema.Field, props map[string]value.Value) []byte {
	buf := make([]byte, 4, 64)
	binary.BigEndian.PutUint32(buf, version)
	for _, f := range fields {
		v, present := props[f.Name]
		if !present {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		enc := value.Encode(v)
		buf = appendUvarintLocal(buf, uint64(len(enc)))
		buf = append(buf, enc...)
	}
	return buf
}

func decodeFields(data []byte, fields []schema.Field) (uint32, map[string]value.Value, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("graph: record too short")
	}
	version := binary.BigEndian.Uint32(data[:4])
	rest := data[4:]
	props := make(map[string]value.Value, len(fields))
	for _, f := range fields {
		if len(rest) < 1 {
			return 0, nil, fmt.Errorf("graph: truncated record for field %q", f.Name)
		}
		present := rest[0] != 0
		rest = rest[1:]
		if !present {
			continue
		}
		n, rest2, err := readUvarintLocal(rest)
		if err != nil {
			return 0, nil, err
		}
		if uint64(len(rest2)) < n {
			return 0, nil, fmt.Errorf("graph: truncated value for field %q", f.Name)
		}
		v, _, err := value.Decode(rest2[:n])
		if err != nil {
			return 0, nil, err
		}
		props[f.Name] = v
		rest = rest2[n:]
	}
	return version, props, nil
}

func appendUvarintLocal(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarintLocal(b []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, fmt.Errorf("graph: malformed varint")
	}
	return v, b[n:], nil
}

// encodeNode serializes a node record: label, then declaration-order fields.
func encodeNode(label string, version uint32, fields []schema.Field, props map[string]value.Value) []byte {
	buf := appendStringLocal(nil, label)
	buf = append(buf, encodeFields(version, fields, props)...)
	return buf
}

func decodeNode(id value.ID, data []byte, s *schema.Schema) (*Node, error) {
	label, rest, err := readStringLocal(data)
	if err != nil {
		return nil, err
	}
	sc, ok := s.NodeAt(label, peekVersion(rest))
	if !ok {
		return nil, fmt.Errorf("graph: unknown node schema %q", label)
	}
	version, props, err := decodeFields(rest, sc.Fields)
	if err != nil {
		return nil, err
	}
	return &Node{ID: id, Label: label, Version: version, Properties: props}, nil
}

func peekVersion(data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(data[:4])
}

func encodeEdge(e *Edge, fields []schema.Field) []byte {
	buf := appendStringLocal(nil, e.Label)
	fb := e.From.Bytes()
	tb := e.To.Bytes()
	buf = append(buf, fb...)
	buf = append(buf, byte(e.FromKind))
	buf = append(buf, tb...)
	buf = append(buf, byte(e.ToKind))
	buf = append(buf, encodeFields(e.Version, fields, e.Properties)...)
	return buf
}

func decodeEdge(id value.ID, data []byte, s *schema.Schema) (*Edge, error) {
	label, rest, err := readStringLocal(data)
	if err != nil {
		return nil, err
	}
	if len(rest) < 34 {
		return nil, fmt.Errorf("graph: truncated edge record")
	}
	from, err := value.IDFromBytes(rest[:16])
	if err != nil {
		return nil, err
	}
	fromKind := schema.EndpointKind(rest[16])
	to, err := value.IDFromBytes(rest[17:33])
	if err != nil {
		return nil, err
	}
	toKind := schema.EndpointKind(rest[33])
	rest = rest[34:]

	sc, ok := s.EdgeAt(label, peekVersion(rest))
	if !ok {
		return nil, fmt.Errorf("graph: unknown edge schema %q", label)
	}
	version, props, err := decodeFields(rest, sc.Fields)
	if err != nil {
		return nil, err
	}
	return &Edge{
		ID: id, Label: label, Version: version,
		From: from, FromKind: fromKind,
		To: to, ToKind: toKind,
		Properties: props,
	}, nil
}

func appendStringLocal(buf []byte, s string) []byte {
	buf = appendUvarintLocal(buf, uint64(len(s)))
	return append(buf, s...)
}

func readStringLocal(b []byte) (string, []byte, error) {
	n, rest, err := readUvarintLocal(b)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, fmt.Errorf("graph: truncated string")
	}
	return string(rest[:n]), rest[n:], nil
}
