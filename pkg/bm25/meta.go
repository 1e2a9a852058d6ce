package bm25

import (
	"encoding/binary"
	"math"
)

// metadata is the bm25_metadata[singleton] record of spec §4.4: total
// document count, the running sum of document lengths (avgdl is derived,
// not stored, so it is always exact after insert/delete), and the BM25
// constants.
type metadata struct {
	TotalDocs   int
	TotalLength int
	K1          float64
	B           float64
}

func defaultMetadata() metadata {
	return metadata{K1: 1.2, B: 0.75}
}

func (m metadata) avgdl() float64 {
	if m.TotalDocs == 0 {
		return 0
	}
	return float64(m.TotalLength) / float64(m.TotalDocs)
}

func encodeMetadata(m metadata) []byte {
	buf := make([]byte, 0, 32)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(m.TotalDocs))
	buf = append(buf, tmp[:n]...)
	n = binary.PutUvarint(tmp[:], uint64(m.TotalLength))
	buf = append(buf, tmp[:n]...)
	var fb [8]byte
	binary.BigEndian.PutUint64(fb[:], math.Float64bits(m.K1))
	buf = append(buf, fb[:]...)
	binary.BigEndian.PutUint64(fb[:], math.Float64bits(m.B))
	buf = append(buf, fb[:]...)
	return buf
}

func decodeMetadata(data []byte) (metadata, bool) {
	totalDocs, n1 := binary.Uvarint(data)
	if n1 <= 0 {
		return metadata{}, false
	}
	rest := data[n1:]
	totalLength, n2 := binary.Uvarint(rest)
	if n2 <= 0 {
		return metadata{}, false
	}
	rest = rest[n2:]
	if len(rest) < 16 {
		return metadata{}, false
	}
	k1 := math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))
	b := math.Float64frombits(binary.BigEndian.Uint64(rest[8:16]))
	return metadata{
		TotalDocs:   int(totalDocs),
		TotalLength: int(totalLength),
		K1:          k1,
		B:           b,
	}, true
}
