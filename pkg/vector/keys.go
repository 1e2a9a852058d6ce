package vector

import "github.com/helixdb/helix-go/pkg/value"

func labelPrefix(label string) []byte {
	return append([]byte(label), 0x00)
}

func vectorDataKey(label string, id value.ID) []byte {
	idb := id.Bytes()
	return append(labelPrefix(label), idb...)
}

func vectorKey(label string, id value.ID, level int) []byte {
	return append(vectorDataKey(label, id), byte(level))
}

func edgePrefix(label string, source value.ID, level int) []byte {
	idb := source.Bytes()
	key := append(labelPrefix(label), idb...)
	return append(key, byte(level))
}

func edgeKey(label string, source value.ID, level int, sink value.ID) []byte {
	key := edgePrefix(label, source, level)
	sb := sink.Bytes()
	return append(key, sb...)
}

func entryPointKey(label string) []byte {
	return append([]byte("hnsw_entry\x00"), []byte(label)...)
}
