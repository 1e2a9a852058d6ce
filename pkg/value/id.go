// Package value implements the scalar/composite Value union, the 128-bit ID
// type, and their deterministic binary encoding shared by every storage and
// query component in HelixDB.
package value

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ID is a 128-bit unsigned integer identifying a node, edge, or vector.
// It is rendered externally as a canonical UUID string and encoded
// internally as 16 big-endian bytes so lexicographic key order matches
// numeric order (spec §4.2).
type ID [16]byte

// NewID generates a fresh, random ID. Collisions within a single store are
// astronomically unlikely (122 bits of randomness via UUIDv4) but callers
// that need a time-ordered ID should use NewIDv7.
func NewID() ID {
	return ID(uuid.New())
}

// NewIDv7 generates a time-ordered ID (UUIDv7), useful when insertion order
// should be recoverable from the ID itself.
func NewIDv7() ID {
	u, err := uuid.NewV7()
	if err != nil {
		return NewID()
	}
	return ID(u)
}

// ParseID parses a canonical UUID string into an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("value: invalid id %q: %w", s, err)
	}
	return ID(u), nil
}

// String renders the ID as a canonical UUID string.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero-value ID (used as a "no id" sentinel
// in adjacency-scan helpers).
func (id ID) IsZero() bool {
	return id == ID{}
}

// Bytes returns the 16 big-endian bytes of id. The returned slice aliases id
// only via copy: callers get an independent slice safe to retain.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// IDFromBytes reconstructs an ID from a 16-byte big-endian slice, as stored
// in adjacency and entity keys.
func IDFromBytes(b []byte) (ID, error) {
	if len(b) != 16 {
		return ID{}, fmt.Errorf("value: id must be 16 bytes, got %d", len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// Compare orders two IDs by their big-endian byte representation, matching
// the numeric/lexicographic ordering the storage layer relies on.
func (id ID) Compare(other ID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// LabelHash deterministically hashes a label string to the fixed 4-byte tag
// used as a compact discriminator in adjacency keys (spec §3, §4.2). Uses
// the low 32 bits of xxhash64 — fast, stable across platforms and restarts.
func LabelHash(label string) [4]byte {
	h := xxhash.Sum64String(label)
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], uint32(h))
	return out
}
