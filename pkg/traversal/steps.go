package traversal

import (
	"sort"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

// Out expands each Node into its out(label)-adjacent Nodes.
func (e *Engine) Out(txn *kv.Txn, it Iterator, label string) Iterator {
	return flatMap(it, func(v Val) ([]Val, error) {
		n := v.Node
		adj, err := e.Graph.OutEdges(txn, n.ID, label)
		if err != nil {
			return nil, err
		}
		out := make([]Val, 0, len(adj))
		for _, a := range adj {
			other, err := e.Graph.GetNode(txn, a.Other)
			if err != nil {
				if herr.Is(err, herr.KindNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, NodeVal(other))
		}
		return out, nil
	})
}

// In is symmetric to Out over in(label).
func (e *Engine) In(txn *kv.Txn, it Iterator, label string) Iterator {
	return flatMap(it, func(v Val) ([]Val, error) {
		n := v.Node
		adj, err := e.Graph.InEdges(txn, n.ID, label)
		if err != nil {
			return nil, err
		}
		out := make([]Val, 0, len(adj))
		for _, a := range adj {
			other, err := e.Graph.GetNode(txn, a.Other)
			if err != nil {
				if herr.Is(err, herr.KindNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, NodeVal(other))
		}
		return out, nil
	})
}

// OutE expands each Node into its outgoing edges of label.
func (e *Engine) OutE(txn *kv.Txn, it Iterator, label string) Iterator {
	return flatMap(it, func(v Val) ([]Val, error) {
		adj, err := e.Graph.OutEdges(txn, v.Node.ID, label)
		if err != nil {
			return nil, err
		}
		out := make([]Val, 0, len(adj))
		for _, a := range adj {
			ed, err := e.Graph.GetEdge(txn, a.EdgeID)
			if err != nil {
				if herr.Is(err, herr.KindNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, EdgeVal(ed))
		}
		return out, nil
	})
}

// InE expands each Node into its incoming edges of label.
func (e *Engine) InE(txn *kv.Txn, it Iterator, label string) Iterator {
	return flatMap(it, func(v Val) ([]Val, error) {
		adj, err := e.Graph.InEdges(txn, v.Node.ID, label)
		if err != nil {
			return nil, err
		}
		out := make([]Val, 0, len(adj))
		for _, a := range adj {
			ed, err := e.Graph.GetEdge(txn, a.EdgeID)
			if err != nil {
				if herr.Is(err, herr.KindNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, EdgeVal(ed))
		}
		return out, nil
	})
}

// FromN resolves each Edge's From endpoint to a Node. Legal only when the
// edge schema declares a Node-kind From endpoint; the analyzer enforces
// that statically, so a Vector-kind endpoint reaching here is a bug in the
// caller, not a runtime condition to recover from.
func (e *Engine) FromN(txn *kv.Txn, it Iterator) Iterator {
	return mapFilter(it, func(v Val) (Val, bool, error) {
		n, err := e.Graph.GetNode(txn, v.Edge.From)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				return Val{}, false, nil
			}
			return Val{}, false, err
		}
		return NodeVal(n), true, nil
	})
}

// ToN resolves each Edge's To endpoint to a Node.
func (e *Engine) ToN(txn *kv.Txn, it Iterator) Iterator {
	return mapFilter(it, func(v Val) (Val, bool, error) {
		n, err := e.Graph.GetNode(txn, v.Edge.To)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				return Val{}, false, nil
			}
			return Val{}, false, err
		}
		return NodeVal(n), true, nil
	})
}

// FromV resolves each Edge's From endpoint to a Vector reference.
func (e *Engine) FromV(txn *kv.Txn, it Iterator, label string) Iterator {
	return e.resolveVectorEndpoint(txn, it, label, true)
}

// ToV resolves each Edge's To endpoint to a Vector reference.
func (e *Engine) ToV(txn *kv.Txn, it Iterator, label string) Iterator {
	return e.resolveVectorEndpoint(txn, it, label, false)
}

func (e *Engine) resolveVectorEndpoint(txn *kv.Txn, it Iterator, label string, from bool) Iterator {
	return mapFilter(it, func(v Val) (Val, bool, error) {
		idx, err := e.vectorIndex(label)
		if err != nil {
			return Val{}, false, err
		}
		id := v.Edge.To
		if from {
			id = v.Edge.From
		}
		exists, err := idx.Exists(txn, id)
		if err != nil || !exists {
			return Val{}, false, err
		}
		return VectorVal(VectorRef{Label: label, ID: id}), true, nil
	})
}

// Where filters the pipeline by a side-effect-free predicate over the
// current value and the read transaction (spec §4.5).
func Where(txn *kv.Txn, it Iterator, pred func(txn *kv.Txn, v Val) (bool, error)) Iterator {
	return mapFilter(it, func(v Val) (Val, bool, error) {
		ok, err := pred(txn, v)
		if err != nil {
			return Val{}, false, err
		}
		return v, ok, nil
	})
}

// Count materializes the pipeline and emits a single Count value, per the
// "any -> count -> Count" row of the legality table.
func Count(it Iterator) (Iterator, error) {
	vals, err := Collect(it)
	if err != nil {
		return nil, err
	}
	return fromSlice([]Val{CountVal(int64(len(vals)))}), nil
}

// Range applies a half-open [s,e) window over the whole sequence; negative
// or reversed bounds yield empty (spec §4.5).
func Range(it Iterator, s, end int) (Iterator, error) {
	vals, err := Collect(it)
	if err != nil {
		return nil, err
	}
	if s < 0 || end < 0 || end <= s || s >= len(vals) {
		return fromSlice(nil), nil
	}
	if end > len(vals) {
		end = len(vals)
	}
	return fromSlice(vals[s:end]), nil
}

// OrderBy sorts the whole sequence by the named field, ascending or
// descending, breaking ties by id ascending.
func OrderBy(it Iterator, field string, descending bool) (Iterator, error) {
	vals, err := Collect(it)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(vals, func(i, j int) bool {
		vi, iok := vals[i].Field(field)
		vj, jok := vals[j].Field(field)
		if !iok || !jok {
			return false
		}
		if vi.Equal(vj) {
			idI, _ := vals[i].ID()
			idJ, _ := vals[j].ID()
			return idI.String() < idJ.String()
		}
		if descending {
			return vj.Less(vi)
		}
		return vi.Less(vj)
	})
	return fromSlice(vals), nil
}

// Dedup removes duplicate elements (by id for Node/Edge/Vector, by deep
// equality for Scalar), preserving first-seen order.
func Dedup(it Iterator) (Iterator, error) {
	vals, err := Collect(it)
	if err != nil {
		return nil, err
	}
	seenIDs := map[value.ID]bool{}
	var seenScalars []value.Value
	out := make([]Val, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.ID(); ok {
			if seenIDs[id] {
				continue
			}
			seenIDs[id] = true
			out = append(out, v)
			continue
		}
		if v.Kind == KindScalar {
			dup := false
			for _, s := range seenScalars {
				if s.Equal(v.Scalar) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			seenScalars = append(seenScalars, v.Scalar)
		}
		out = append(out, v)
	}
	return fromSlice(out), nil
}

// Update merges fields into every Node/Edge in the pipeline and persists
// the change, legal only on an owned write transaction (spec §4.5).
func (e *Engine) Update(txn *kv.Txn, it Iterator, fields map[string]value.Value) (Iterator, error) {
	vals, err := Collect(it)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch v.Kind {
		case KindNode:
			merged := mergeProps(v.Node.Properties, fields)
			if err := e.Graph.UpdateNode(e.Env, txn, v.Node.ID, merged); err != nil {
				return nil, err
			}
			v.Node.Properties = merged
		case KindEdge:
			merged := mergeProps(v.Edge.Properties, fields)
			if err := e.Graph.UpdateEdge(txn, v.Edge.ID, merged); err != nil {
				return nil, err
			}
			v.Edge.Properties = merged
		default:
			return nil, herr.New(herr.KindTraversalType, "update is only legal on Node or Edge, got %s", v.Kind)
		}
		vals[i] = v
	}
	return fromSlice(vals), nil
}

func mergeProps(base, patch map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Drop removes every element in the pipeline using the store-level drop
// operation, which cascades incident edges for nodes (spec §4.2, §4.5).
func (e *Engine) Drop(txn *kv.Txn, it Iterator) error {
	vals, err := Collect(it)
	if err != nil {
		return err
	}
	for _, v := range vals {
		switch v.Kind {
		case KindNode:
			if err := e.Graph.DropNode(e.Env, txn, v.Node.ID); err != nil {
				return err
			}
		case KindEdge:
			if err := e.Graph.DropEdge(txn, v.Edge.ID); err != nil {
				return err
			}
		case KindVector:
			idx, err := e.vectorIndex(v.Vector.Label)
			if err != nil {
				return err
			}
			if err := idx.Delete(txn, v.Vector.ID); err != nil {
				return err
			}
		default:
			return herr.New(herr.KindTraversalType, "drop is only legal on Node, Edge, or Vector, got %s", v.Kind)
		}
	}
	return nil
}

// Exclude removes the named fields from every value's property view,
// legal as the final step of a traversal or immediately before object/closure.
func Exclude(it Iterator, fields []string) Iterator {
	drop := map[string]bool{}
	for _, f := range fields {
		drop[f] = true
	}
	return mapFilter(it, func(v Val) (Val, bool, error) {
		props := v.Properties()
		if props == nil {
			return v, true, nil
		}
		filtered := make(map[string]value.Value, len(props))
		for k, val := range props {
			if drop[k] {
				continue
			}
			filtered[k] = val
		}
		switch v.Kind {
		case KindNode:
			clone := *v.Node
			clone.Properties = filtered
			return NodeVal(&clone), true, nil
		case KindEdge:
			clone := *v.Edge
			clone.Properties = filtered
			return EdgeVal(&clone), true, nil
		case KindVector:
			v.Vector.Properties = filtered
			return v, true, nil
		default:
			return v, true, nil
		}
	})
}
