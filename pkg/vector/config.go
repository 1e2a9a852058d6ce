// Package vector is a KV-resident HNSW (Hierarchical Navigable Small World)
// index: vectors, their neighbor graph, and user properties persist through
// pkg/kv so the index survives restarts and shares transactions with
// pkg/graph.
package vector

import (
	"math"

	mathvector "github.com/helixdb/helix-go/pkg/math/vector"
)

// Config tunes the HNSW index. Zero-value fields are replaced by the
// defaults below, then every field is clamped to the range spec §4.3
// requires, so a caller can never construct a pathological index just by
// omitting fields.
type Config struct {
	M               int
	MMax0           int
	EfConstruction  int
	EfSearch        int
	LevelMultiplier float64
}

const (
	minM, maxM                     = 5, 48
	minEfConstruction, maxEfConstr = 40, 512
	minEfSearch, maxEfSearch       = 10, 512
)

// DefaultConfig returns the spec-mandated defaults (M=16, ef_construct=128,
// ef_search=768, m_L=1/ln(M)).
func DefaultConfig() Config {
	return Config{
		M:               16,
		MMax0:           32,
		EfConstruction:  128,
		EfSearch:        768,
		LevelMultiplier: 1.0 / math.Log(16.0),
	}
}

// Clamp normalizes c: unset fields take spec defaults, and every field is
// bounded to its documented range even if the caller supplied one.
func (c Config) Clamp() Config {
	if c.M <= 0 {
		c.M = 16
	}
	if c.M < minM {
		c.M = minM
	}
	if c.M > maxM {
		c.M = maxM
	}
	if c.MMax0 <= 0 {
		c.MMax0 = 2 * c.M
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 128
	}
	if c.EfConstruction < minEfConstruction {
		c.EfConstruction = minEfConstruction
	}
	if c.EfConstruction > maxEfConstr {
		c.EfConstruction = maxEfConstr
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 768
	}
	if c.EfSearch < minEfSearch {
		c.EfSearch = minEfSearch
	}
	if c.EfSearch > maxEfSearch {
		c.EfSearch = maxEfSearch
	}
	if c.LevelMultiplier <= 0 {
		c.LevelMultiplier = 1.0 / math.Log(float64(c.M))
	}
	return c
}

// Distance is a symmetric, non-negative, zero-on-identity metric over two
// equal-length vectors (spec §4.3). The default is Euclidean distance.
type Distance func(a, b []float64) float64

// Euclidean is the default Distance.
func Euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Cosine is an alternative Distance (1 - cosine similarity), usable for
// embedding spaces where direction matters more than magnitude.
func Cosine(a, b []float64) float64 {
	return 1 - mathvector.CosineSimilarityFloat64(a, b)
}
