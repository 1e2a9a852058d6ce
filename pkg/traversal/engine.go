package traversal

import (
	"github.com/helixdb/helix-go/pkg/bm25"
	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/value"
	"github.com/helixdb/helix-go/pkg/vector"
)

// Engine binds the three storage subsystems a compiled query's source and
// transition steps read from. One Engine is built per open database and
// shared by every compiled query (spec §4.6.3: handlers take "a decoded
// parameter record and a storage handle").
type Engine struct {
	Env    *kv.Environment
	Graph  *graph.Graph
	Schema *schema.Schema

	vectors  map[string]*vector.Index
	fulltext map[string]*bm25.Index
}

// NewEngine constructs an Engine. Vector and full-text sub-indices are
// registered lazily via RegisterVector/RegisterFullText as the schema
// declares V:: labels and BM25-enabled node labels, rather than eagerly
// enumerated here.
func NewEngine(env *kv.Environment, g *graph.Graph, sch *schema.Schema) *Engine {
	return &Engine{
		Env: env, Graph: g, Schema: sch,
		vectors:  map[string]*vector.Index{},
		fulltext: map[string]*bm25.Index{},
	}
}

func (e *Engine) RegisterVector(label string, idx *vector.Index) { e.vectors[label] = idx }
func (e *Engine) RegisterFullText(label string, idx *bm25.Index) { e.fulltext[label] = idx }

// VectorIndex exposes the registered HNSW index for label, for callers
// outside this package that need to insert or delete vectors directly
// (the code generator's AddV handling).
func (e *Engine) VectorIndex(label string) (*vector.Index, error) { return e.vectorIndex(label) }

// FullTextIndex exposes the registered BM25 index for label, for callers
// that maintain it directly (the code generator's AddN handling on a
// BM25-enabled label).
func (e *Engine) FullTextIndex(label string) (*bm25.Index, error) { return e.fullTextIndex(label) }

func (e *Engine) vectorIndex(label string) (*vector.Index, error) {
	idx, ok := e.vectors[label]
	if !ok {
		return nil, herr.New(herr.KindSemantic, "no vector index registered for label %q", label)
	}
	return idx, nil
}

func (e *Engine) fullTextIndex(label string) (*bm25.Index, error) {
	idx, ok := e.fulltext[label]
	if !ok {
		return nil, herr.New(herr.KindSemantic, "no full-text index registered for label %q", label)
	}
	return idx, nil
}

// NFromType scans every node of label (spec §4.5: "prefix scan of nodes
// filtered by label"). pkg/graph stores nodes keyed only by id, so this
// walks the whole nodes store and decodes each record to test its label —
// the accepted cost of not maintaining a separate label index, see DESIGN.md.
func (e *Engine) NFromType(txn *kv.Txn, label string) (Iterator, error) {
	ids, err := e.Graph.AllNodeIDs(txn)
	if err != nil {
		return nil, err
	}
	var vals []Val
	for _, id := range ids {
		n, err := e.Graph.GetNode(txn, id)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				continue
			}
			return nil, err
		}
		if n.Label != label {
			continue
		}
		vals = append(vals, NodeVal(n))
	}
	return fromSlice(vals), nil
}

// NFromID yields the single node with id, or an empty iterator if absent.
func (e *Engine) NFromID(txn *kv.Txn, id value.ID) (Iterator, error) {
	n, err := e.Graph.GetNode(txn, id)
	if err != nil {
		if herr.Is(err, herr.KindNotFound) {
			return fromSlice(nil), nil
		}
		return nil, err
	}
	return fromSlice([]Val{NodeVal(n)}), nil
}

// NFromIndex yields nodes whose declared INDEX field equals key.
func (e *Engine) NFromIndex(txn *kv.Txn, field string, key value.Value) (Iterator, error) {
	ids, err := e.Graph.NFromIndex(e.Env, txn, field, key)
	if err != nil {
		return nil, err
	}
	vals := make([]Val, 0, len(ids))
	for _, id := range ids {
		n, err := e.Graph.GetNode(txn, id)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				continue
			}
			return nil, err
		}
		vals = append(vals, NodeVal(n))
	}
	return fromSlice(vals), nil
}

// EFromType scans every edge of label, symmetric to NFromType.
func (e *Engine) EFromType(txn *kv.Txn, label string) (Iterator, error) {
	ids, err := e.Graph.AllEdgeIDs(txn)
	if err != nil {
		return nil, err
	}
	var vals []Val
	for _, id := range ids {
		ed, err := e.Graph.GetEdge(txn, id)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				continue
			}
			return nil, err
		}
		if ed.Label != label {
			continue
		}
		vals = append(vals, EdgeVal(ed))
	}
	return fromSlice(vals), nil
}

// EFromID yields the single edge with id, or empty if absent.
func (e *Engine) EFromID(txn *kv.Txn, id value.ID) (Iterator, error) {
	ed, err := e.Graph.GetEdge(txn, id)
	if err != nil {
		if herr.Is(err, herr.KindNotFound) {
			return fromSlice(nil), nil
		}
		return nil, err
	}
	return fromSlice([]Val{EdgeVal(ed)}), nil
}

// SearchV runs an approximate nearest-neighbor search against the named
// vector label's HNSW index.
func (e *Engine) SearchV(txn *kv.Txn, label string, query []float64, k int, filters ...vector.FilterFunc) (Iterator, error) {
	idx, err := e.vectorIndex(label)
	if err != nil {
		return nil, err
	}
	results, err := idx.Search(txn, query, k, vector.SearchOptions{Filters: filters, ShouldTrickle: len(filters) > 0})
	if err != nil {
		return nil, err
	}
	vals := make([]Val, 0, len(results))
	for _, r := range results {
		vals = append(vals, VectorVal(VectorRef{Label: label, ID: r.ID, Distance: r.Distance}))
	}
	return fromSlice(vals), nil
}

// BruteForceSearchV scans every live vector under label and ranks by exact
// distance, used as the ground truth the HNSW approximation is checked
// against and as a correctness fallback for small datasets.
func (e *Engine) BruteForceSearchV(txn *kv.Txn, label string, query []float64, k int) (Iterator, error) {
	idx, err := e.vectorIndex(label)
	if err != nil {
		return nil, err
	}
	results, err := idx.BruteForceSearch(txn, query, k)
	if err != nil {
		return nil, err
	}
	vals := make([]Val, 0, len(results))
	for _, r := range results {
		vals = append(vals, VectorVal(VectorRef{Label: label, ID: r.ID, Distance: r.Distance}))
	}
	return fromSlice(vals), nil
}

// SearchBM25 runs a full-text search against the named label's BM25 index,
// resolving hit ids back to their node records.
func (e *Engine) SearchBM25(txn *kv.Txn, label, query string, k int) (Iterator, error) {
	idx, err := e.fullTextIndex(label)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(txn, query, k)
	if err != nil {
		return nil, err
	}
	vals := make([]Val, 0, len(hits))
	for _, h := range hits {
		n, err := e.Graph.GetNode(txn, h.ID)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				continue
			}
			return nil, err
		}
		vals = append(vals, NodeVal(n))
	}
	return fromSlice(vals), nil
}
