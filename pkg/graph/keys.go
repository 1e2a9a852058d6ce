// Package graph is the persistent node/edge store: bit-exact key layouts
// over pkg/kv, schema-driven secondary indices, and adjacency cascades.
package graph

import (
	"github.com/helixdb/helix-go/pkg/value"
)

func nodeKey(id value.ID) []byte {
	b := id.Bytes()
	return b[:]
}

func edgeKey(id value.ID) []byte {
	b := id.Bytes()
	return b[:]
}

// adjKey builds the 20-byte `id ‖ label-hash` prefix shared by out_edges and
// in_edges (spec §4.2 key table).
func adjKey(id value.ID, labelHash [4]byte) []byte {
	b := id.Bytes()
	key := make([]byte, 0, 20)
	key = append(key, b[:]...)
	key = append(key, labelHash[:]...)
	return key
}

// adjValue packs the 32-byte `edge-id ‖ other-id` adjacency duplicate value.
func adjValue(edgeID, otherID value.ID) []byte {
	e := edgeID.Bytes()
	o := otherID.Bytes()
	out := make([]byte, 0, 32)
	out = append(out, e[:]...)
	out = append(out, o[:]...)
	return out
}

func parseAdjValue(v []byte) (edgeID, otherID value.ID, ok bool) {
	if len(v) != 32 {
		return value.ID{}, value.ID{}, false
	}
	var e, o [16]byte
	copy(e[:], v[:16])
	copy(o[:], v[16:])
	return value.ID(e), value.ID(o), true
}

func labelHashBytes(label string) [4]byte { return value.LabelHash(label) }

func secondaryKey(v value.Value) []byte { return value.Encode(v) }
