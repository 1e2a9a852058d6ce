package bm25

import (
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
	"github.com/helixdb/helix-go/pkg/vector"
)

// VectorSearcher abstracts the vector index's Search method so hybrid.go
// depends only on what it queries, not the full vector.Index surface.
type VectorSearcher interface {
	Search(txn *kv.Txn, query []float64, k int, opts vector.SearchOptions) ([]vector.Result, error)
}

// HybridHit is one result of a blended BM25/vector search.
type HybridHit struct {
	ID    value.ID
	Score float64
}

// HybridSearch blends BM25 relevance and vector similarity with min-max
// normalization, per spec §4.4: alpha=1 is text-only, alpha=0 is
// vector-only, and intermediate values blend linearly. Vector distances are
// converted to similarities (1 - normalized distance) before blending so
// higher is always better in both signals.
func (idx *Index) HybridSearch(txn *kv.Txn, vecIdx VectorSearcher, qText string, qVector []float64, alpha float64, k int) ([]HybridHit, error) {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	fetchK := k * 4
	if fetchK < k {
		fetchK = k
	}

	var textHits []Hit
	var err error
	if alpha > 0 && qText != "" {
		textHits, err = idx.Search(txn, qText, fetchK)
		if err != nil {
			return nil, err
		}
	}

	var vecHits []vector.Result
	if alpha < 1 && len(qVector) > 0 && vecIdx != nil {
		vecHits, err = vecIdx.Search(txn, qVector, fetchK, vector.SearchOptions{})
		if err != nil {
			return nil, err
		}
	}

	textScores := normalizeBM25(textHits)
	vecScores := normalizeVector(vecHits)

	combined := map[value.ID]float64{}
	for id, s := range textScores {
		combined[id] += alpha * s
	}
	for id, s := range vecScores {
		combined[id] += (1 - alpha) * s
	}

	hits := make([]HybridHit, 0, len(combined))
	for id, score := range combined {
		hits = append(hits, HybridHit{ID: id, Score: score})
	}
	sortHybrid(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func normalizeBM25(hits []Hit) map[value.ID]float64 {
	out := map[value.ID]float64{}
	if len(hits) == 0 {
		return out
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	span := max - min
	for _, h := range hits {
		if span == 0 {
			out[h.ID] = 1
			continue
		}
		out[h.ID] = (h.Score - min) / span
	}
	return out
}

func normalizeVector(hits []vector.Result) map[value.ID]float64 {
	out := map[value.ID]float64{}
	if len(hits) == 0 {
		return out
	}
	min, max := hits[0].Distance, hits[0].Distance
	for _, h := range hits {
		if h.Distance < min {
			min = h.Distance
		}
		if h.Distance > max {
			max = h.Distance
		}
	}
	span := max - min
	for _, h := range hits {
		if span == 0 {
			out[h.ID] = 1
			continue
		}
		// smaller distance is better, so similarity = 1 - normalized distance
		out[h.ID] = 1 - (h.Distance-min)/span
	}
	return out
}

func sortHybrid(hits []HybridHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
