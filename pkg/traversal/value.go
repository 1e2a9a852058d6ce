// Package traversal implements the lazy step pipeline that both the HQL
// code generator and ad-hoc CLI queries compile down to: a sequence of
// Val produced by a source step and reshaped by transition steps,
// each carrying a static element-kind that drives compile-time validation
// in pkg/hql/analyzer.
package traversal

import (
	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/value"
)

// Kind is the static element-kind carried by a step in the pipeline. It
// mirrors the tagged union in the element kind table: Node, Edge, Vector,
// Count, Path, Scalar, Empty, plus Object for the result of a remapping
// step (object{}/closure), which has no further legal transitions.
type Kind int

const (
	KindNode Kind = iota
	KindEdge
	KindVector
	KindCount
	KindPath
	KindScalar
	KindEmpty
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "Node"
	case KindEdge:
		return "Edge"
	case KindVector:
		return "Vector"
	case KindCount:
		return "Count"
	case KindPath:
		return "Path"
	case KindScalar:
		return "Scalar"
	case KindEmpty:
		return "Empty"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// VectorRef is the Vector-kind payload: an id in a vector store plus the
// distance to whatever query produced it (0 when reached by edge traversal
// rather than a search step).
type VectorRef struct {
	Label      string
	ID         value.ID
	Distance   float64
	Properties map[string]value.Value
}

// PathVal is the Path-kind payload produced by shortest_path: the ordered
// node and edge sequence from source to sink.
type PathVal struct {
	Nodes []*graph.Node
	Edges []*graph.Edge
}

// Val is one element flowing through a traversal pipeline. Exactly one
// field is meaningful, selected by Kind.
type Val struct {
	Kind Kind

	Node   *graph.Node
	Edge   *graph.Edge
	Vector VectorRef
	Count  int64
	Path   PathVal
	Scalar value.Value
	Object map[string]value.Value
}

func NodeVal(n *graph.Node) Val   { return Val{Kind: KindNode, Node: n} }
func EdgeVal(e *graph.Edge) Val   { return Val{Kind: KindEdge, Edge: e} }
func VectorVal(v VectorRef) Val   { return Val{Kind: KindVector, Vector: v} }
func CountVal(n int64) Val        { return Val{Kind: KindCount, Count: n} }
func PathValOf(p PathVal) Val     { return Val{Kind: KindPath, Path: p} }
func ScalarVal(v value.Value) Val { return Val{Kind: KindScalar, Scalar: v} }
func ObjectVal(m map[string]value.Value) Val {
	return Val{Kind: KindObject, Object: m}
}

var Empty = Val{Kind: KindEmpty}

// Properties returns the property map of a Node/Edge/Vector value, or nil
// for kinds that don't carry one — used by where-predicates, order_by, and
// object remapping to resolve a field name generically across kinds.
func (v Val) Properties() map[string]value.Value {
	switch v.Kind {
	case KindNode:
		if v.Node != nil {
			return v.Node.Properties
		}
	case KindEdge:
		if v.Edge != nil {
			return v.Edge.Properties
		}
	case KindVector:
		return v.Vector.Properties
	}
	return nil
}

// ID returns the identifying id of a Node/Edge/Vector value, for dedup and
// order-by-id tie-breaking.
func (v Val) ID() (value.ID, bool) {
	switch v.Kind {
	case KindNode:
		if v.Node != nil {
			return v.Node.ID, true
		}
	case KindEdge:
		if v.Edge != nil {
			return v.Edge.ID, true
		}
	case KindVector:
		return v.Vector.ID, true
	}
	return value.ID{}, false
}

// Field resolves a named property on the current value, checking the
// identifying id under the synthetic name "id" first.
func (v Val) Field(name string) (value.Value, bool) {
	if name == "id" {
		if id, ok := v.ID(); ok {
			return value.UUIDValue(id), true
		}
	}
	props := v.Properties()
	if props == nil {
		return value.Empty, false
	}
	val, ok := props[name]
	return val, ok
}
