package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/helixdb/helix-go/pkg/value"
)

// encodeRawVector serializes a raw []float64 payload: a uvarint length
// followed by that many big-endian float64s, matching the "serialized
// vector payload (data + level)" wire description of spec §4.3 (the level
// itself lives in the key, not the value).
func encodeRawVector(vec []float64) []byte {
	buf := make([]byte, 0, 8+8*len(vec))
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(vec)))
	buf = append(buf, tmp[:n]...)
	for _, f := range vec {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodeRawVector(data []byte) ([]float64, error) {
	n, rest := binary.Uvarint(data)
	if rest <= 0 {
		return nil, fmt.Errorf("vector: malformed vector length")
	}
	body := data[rest:]
	if uint64(len(body)) < n*8 {
		return nil, fmt.Errorf("vector: truncated vector payload")
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(body[i*8:]))
	}
	return out, nil
}

// vectorDataRecord is the vector_data[id] payload: the max level the vector
// was inserted at, plus its user properties (including is_deleted, which per
// spec §4.3 is a plain property rather than a separate flag).
type vectorDataRecord struct {
	MaxLevel   int
	Properties map[string]value.Value
}

func encodeVectorData(rec vectorDataRecord) []byte {
	buf := []byte{byte(rec.MaxLevel)}
	buf = append(buf, value.Encode(value.ObjectValue(rec.Properties))...)
	return buf
}

func decodeVectorData(data []byte) (vectorDataRecord, error) {
	if len(data) < 1 {
		return vectorDataRecord{}, fmt.Errorf("vector: truncated vector_data record")
	}
	maxLevel := int(data[0])
	v, _, err := value.Decode(data[1:])
	if err != nil {
		return vectorDataRecord{}, err
	}
	obj, _ := v.AsObject()
	return vectorDataRecord{MaxLevel: maxLevel, Properties: obj}, nil
}

func isDeleted(props map[string]value.Value) bool {
	v, ok := props["is_deleted"]
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}
