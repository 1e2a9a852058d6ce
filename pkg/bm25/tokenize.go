// Package bm25 is a KV-resident BM25 full-text index: postings, document
// lengths, and running statistics persist through pkg/kv so search shares
// transactions with pkg/graph and pkg/vector.
package bm25

import (
	"sort"
	"strings"
	"unicode"

	"github.com/helixdb/helix-go/pkg/value"
)

// Tokenize lowercases text and splits on non-alphanumeric runes. In filtered
// mode (spec §4.4) tokens of length <= 2 are dropped; unfiltered mode keeps
// every token, matching the teacher's richer tokenizer for callers that want
// prefix-style recall instead of spec-exact semantics.
func Tokenize(text string, filtered bool) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if !filtered {
		return words
	}
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// FlattenProperties concatenates every string-typed property value into one
// searchable string, in sorted key order for determinism (spec §4.4: "a
// helper flattens a property map into a single searchable string").
func FlattenProperties(props map[string]value.Value) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if s, ok := props[k].AsString(); ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s)
		}
	}
	return b.String()
}
