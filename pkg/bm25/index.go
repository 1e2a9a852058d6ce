package bm25

import (
	"math"
	"sort"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

// Index is a KV-resident BM25 full-text index over one logical document
// space (typically a node label).
type Index struct {
	Filtered bool // whether Tokenize drops tokens of length <= 2

	postings   *kv.Store
	docLengths *kv.Store
	meta       *kv.Store
}

// New constructs an Index. Filtered defaults to true (spec §4.4 exact
// semantics); set Filtered=false for the teacher's richer unfiltered mode.
func New(env *kv.Environment) *Index {
	return &Index{
		Filtered:   true,
		postings:   env.Store(string(kv.BM25Postings)),
		docLengths: env.Store(string(kv.BM25DocLength)),
		meta:       env.Store(string(kv.BM25Meta)),
	}
}

func (idx *Index) getMetadata(txn *kv.Txn) (metadata, error) {
	raw, err := idx.meta.Get(txn, []byte(metaSingletonKey))
	if err != nil {
		if herr.Is(err, herr.KindNotFound) {
			return defaultMetadata(), nil
		}
		return metadata{}, err
	}
	m, ok := decodeMetadata(raw)
	if !ok {
		return metadata{}, herr.New(herr.KindBM25, "corrupt bm25 metadata record")
	}
	return m, nil
}

func (idx *Index) putMetadata(txn *kv.Txn, m metadata) error {
	return idx.meta.Put(txn, []byte(metaSingletonKey), encodeMetadata(m))
}

// InsertDoc tokenizes text, writes one posting per distinct term, the
// document's length, and updates the running total_docs/avgdl bookkeeping.
// Inserting over an existing id is the caller's responsibility to avoid —
// use UpdateDoc for that case.
func (idx *Index) InsertDoc(txn *kv.Txn, id value.ID, text string) error {
	tokens := Tokenize(text, idx.Filtered)

	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}
	for term, tf := range termFreq {
		if err := idx.postings.Put(txn, postingKey(term, id), encodeTF(tf)); err != nil {
			return err
		}
	}
	if err := idx.docLengths.Put(txn, docLengthKey(id), encodeTF(len(tokens))); err != nil {
		return err
	}

	m, err := idx.getMetadata(txn)
	if err != nil {
		return err
	}
	m.TotalDocs++
	m.TotalLength += len(tokens)
	return idx.putMetadata(txn, m)
}

// DeleteDoc removes id's postings and length entry and updates bookkeeping.
// Deleting an absent id is a no-op.
func (idx *Index) DeleteDoc(txn *kv.Txn, id value.ID, text string) error {
	raw, err := idx.docLengths.Get(txn, docLengthKey(id))
	if err != nil {
		if herr.Is(err, herr.KindNotFound) {
			return nil
		}
		return err
	}
	docLen := decodeTF(raw)

	tokens := Tokenize(text, idx.Filtered)
	seen := map[string]bool{}
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		if err := idx.postings.Delete(txn, postingKey(t, id)); err != nil {
			return err
		}
	}
	if err := idx.docLengths.Delete(txn, docLengthKey(id)); err != nil {
		return err
	}

	m, err := idx.getMetadata(txn)
	if err != nil {
		return err
	}
	if m.TotalDocs > 0 {
		m.TotalDocs--
	}
	m.TotalLength -= docLen
	if m.TotalLength < 0 {
		m.TotalLength = 0
	}
	return idx.putMetadata(txn, m)
}

// UpdateDoc deletes the document's existing postings (using oldText to
// recover its prior tokens) then re-inserts under the same id with newText,
// per spec §4.4 ("delete then insert under the same id").
func (idx *Index) UpdateDoc(txn *kv.Txn, id value.ID, oldText, newText string) error {
	if err := idx.DeleteDoc(txn, id, oldText); err != nil {
		return err
	}
	return idx.InsertDoc(txn, id, newText)
}

func (idx *Index) documentFrequency(txn *kv.Txn, term string) (int, error) {
	return idx.postings.CountPrefix(txn, postingMajor(term))
}

func (idx *Index) idf(n, df float64) float64 {
	v := math.Log((n-df+0.5)/(df+0.5) + 1)
	if v < 0 {
		return 0
	}
	return v
}

// Hit is one scored search result.
type Hit struct {
	ID    value.ID
	Score float64
}

// Search runs classical BM25 scoring (spec §4.4): idf(t)*(tf*(k1+1))/(tf+k1*(1-b+b*|d|/avgdl)),
// summed over query terms, returning the top-k by score. An empty query
// yields no results.
func (idx *Index) Search(txn *kv.Txn, query string, k int) ([]Hit, error) {
	terms := Tokenize(query, idx.Filtered)
	if len(terms) == 0 {
		return nil, nil
	}

	m, err := idx.getMetadata(txn)
	if err != nil {
		return nil, err
	}
	if m.TotalDocs == 0 || m.avgdl() == 0 {
		return nil, nil
	}

	scores := map[value.ID]float64{}
	seenTerms := map[string]bool{}
	for _, term := range terms {
		if seenTerms[term] {
			continue
		}
		seenTerms[term] = true

		df, err := idx.documentFrequency(txn, term)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			continue
		}
		idfVal := idx.idf(float64(m.TotalDocs), float64(df))

		entries, err := idx.postings.ScanPrefix(txn, postingMajor(term))
		if err != nil {
			return nil, err
		}
		for _, ent := range entries {
			docID, err := value.IDFromBytes(ent.Suffix)
			if err != nil {
				continue
			}
			lenRaw, err := idx.docLengths.Get(txn, docLengthKey(docID))
			if err != nil {
				continue
			}
			docLen := float64(decodeTF(lenRaw))
			tf := float64(decodeTF(ent.Value))

			numerator := tf * (m.K1 + 1)
			denominator := tf + m.K1*(1-m.B+m.B*(docLen/m.avgdl()))
			scores[docID] += idfVal * (numerator / denominator)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
