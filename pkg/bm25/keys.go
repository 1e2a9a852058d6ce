package bm25

import (
	"encoding/binary"

	"github.com/helixdb/helix-go/pkg/value"
)

func postingMajor(term string) []byte {
	return append([]byte(term), 0x00)
}

func postingKey(term string, docID value.ID) []byte {
	b := docID.Bytes()
	return append(postingMajor(term), b...)
}

func encodeTF(tf int) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(tf))
	return buf[:n]
}

func decodeTF(b []byte) int {
	v, _ := binary.Uvarint(b)
	return int(v)
}

func docLengthKey(docID value.ID) []byte {
	return docID.Bytes()
}

const metaSingletonKey = "meta"
