// Package schema holds the versioned bundle of node, edge, and vector
// declarations that every HQL query is compiled against (spec §3), plus the
// migration ladder used to upgrade older records on read.
package schema

import (
	"fmt"
	"sort"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/value"
)

// Prefix is the field modifier declared in schema.hx: plain, INDEX
// (materialize a secondary index), or optional (may be absent).
type Prefix int

const (
	PrefixPlain Prefix = iota
	PrefixIndex
	PrefixOptional
)

// Field describes one declared property.
type Field struct {
	Name    string
	Type    value.Kind
	Prefix  Prefix
	Default *value.Value
}

// IsIndexed reports whether Field requires a secondary index.
func (f Field) IsIndexed() bool { return f.Prefix == PrefixIndex }

// IsOptional reports whether Field may be absent from a record.
func (f Field) IsOptional() bool { return f.Prefix == PrefixOptional }

// EndpointKind discriminates whether an edge endpoint resolves against the
// node store or the vector store.
type EndpointKind int

const (
	EndpointNode EndpointKind = iota
	EndpointVector
)

func (k EndpointKind) String() string {
	if k == EndpointVector {
		return "Vec"
	}
	return "Node"
}

// EndpointRef names the declared schema an edge's From/To must resolve to.
type EndpointRef struct {
	Kind  EndpointKind
	Label string
}

// NodeSchema is one versioned `N::Label` declaration.
type NodeSchema struct {
	Label   string
	Version uint32
	Fields  []Field // declaration order; the wire order for bincode records
}

// EdgeSchema is one versioned `E::Label` declaration.
type EdgeSchema struct {
	Label   string
	Version uint32
	Fields  []Field
	From    EndpointRef
	To      EndpointRef
}

// VectorSchema is one versioned `V::Label` declaration.
type VectorSchema struct {
	Label      string
	Version    uint32
	Dimensions int
	Fields     []Field
}

// FieldByName finds a field by name, or ok=false.
func (s *NodeSchema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *EdgeSchema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *VectorSchema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Schema is the full versioned bundle loaded from schema.hx plus any
// migration blocks. Construct with New and populate with AddNode/AddEdge/
// AddVector/AddMigration, then call Validate before use.
type Schema struct {
	nodes      map[string]map[uint32]*NodeSchema
	edges      map[string]map[uint32]*EdgeSchema
	vectors    map[string]map[uint32]*VectorSchema
	migrations []Migration
}

// New returns an empty Schema bundle.
func New() *Schema {
	return &Schema{
		nodes:   map[string]map[uint32]*NodeSchema{},
		edges:   map[string]map[uint32]*EdgeSchema{},
		vectors: map[string]map[uint32]*VectorSchema{},
	}
}

func (s *Schema) AddNode(n *NodeSchema) {
	if s.nodes[n.Label] == nil {
		s.nodes[n.Label] = map[uint32]*NodeSchema{}
	}
	s.nodes[n.Label][n.Version] = n
}

func (s *Schema) AddEdge(e *EdgeSchema) {
	if s.edges[e.Label] == nil {
		s.edges[e.Label] = map[uint32]*EdgeSchema{}
	}
	s.edges[e.Label][e.Version] = e
}

func (s *Schema) AddVector(v *VectorSchema) {
	if s.vectors[v.Label] == nil {
		s.vectors[v.Label] = map[uint32]*VectorSchema{}
	}
	s.vectors[v.Label][v.Version] = v
}

func (s *Schema) AddMigration(m Migration) {
	s.migrations = append(s.migrations, m)
	sort.Slice(s.migrations, func(i, j int) bool { return s.migrations[i].From < s.migrations[j].From })
}

// Node returns the latest-version schema for label.
func (s *Schema) Node(label string) (*NodeSchema, bool) {
	return latest(s.nodes[label])
}

// NodeAt returns the schema for label at exactly version.
func (s *Schema) NodeAt(label string, version uint32) (*NodeSchema, bool) {
	versions, ok := s.nodes[label]
	if !ok {
		return nil, false
	}
	n, ok := versions[version]
	return n, ok
}

func (s *Schema) Edge(label string) (*EdgeSchema, bool) { return latest(s.edges[label]) }

func (s *Schema) EdgeAt(label string, version uint32) (*EdgeSchema, bool) {
	versions, ok := s.edges[label]
	if !ok {
		return nil, false
	}
	e, ok := versions[version]
	return e, ok
}

func (s *Schema) Vector(label string) (*VectorSchema, bool) { return latest(s.vectors[label]) }

func (s *Schema) VectorAt(label string, version uint32) (*VectorSchema, bool) {
	versions, ok := s.vectors[label]
	if !ok {
		return nil, false
	}
	v, ok := versions[version]
	return v, ok
}

func latest[T any](versions map[uint32]*T) (*T, bool) {
	if len(versions) == 0 {
		return nil, false
	}
	var maxV uint32
	first := true
	for v := range versions {
		if first || v > maxV {
			maxV = v
			first = false
		}
	}
	return versions[maxV], true
}

// NodeLabels returns every declared node label.
func (s *Schema) NodeLabels() []string { return keys(s.nodes) }
func (s *Schema) EdgeLabels() []string { return keys(s.edges) }
func (s *Schema) VectorLabels() []string { return keys(s.vectors) }

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks schema-wide invariants that must hold before the schema
// is used to compile queries or write data:
//   - every declared label hashes to a distinct 4-byte tag (spec §3: "the
//     hash MUST be deterministic and collision-checked against the schema
//     at load time")
//   - every edge endpoint resolves to a declared node or vector schema
func (s *Schema) Validate() error {
	seen := map[[4]byte]string{}
	allLabels := append(append(s.NodeLabels(), s.EdgeLabels()...), s.VectorLabels()...)
	for _, label := range allLabels {
		h := value.LabelHash(label)
		if other, ok := seen[h]; ok && other != label {
			return herr.New(herr.KindSchemaMismatch, "label hash collision between %q and %q", other, label)
		}
		seen[h] = label
	}

	for _, label := range s.EdgeLabels() {
		e, _ := s.Edge(label)
		if err := s.validateEndpoint(e.From); err != nil {
			return herr.Wrap(herr.KindSchemaMismatch, err, "edge %q From endpoint", label)
		}
		if err := s.validateEndpoint(e.To); err != nil {
			return herr.Wrap(herr.KindSchemaMismatch, err, "edge %q To endpoint", label)
		}
	}
	return nil
}

func (s *Schema) validateEndpoint(ref EndpointRef) error {
	switch ref.Kind {
	case EndpointNode:
		if _, ok := s.Node(ref.Label); !ok {
			return fmt.Errorf("unknown node type %q", ref.Label)
		}
	case EndpointVector:
		if _, ok := s.Vector(ref.Label); !ok {
			return fmt.Errorf("unknown vector type %q", ref.Label)
		}
	}
	return nil
}

// CheckValue reports whether v is assignable to field's declared type,
// using an explicit Kind-to-Kind table rather than structural duck-typing
// (spec §9: "Equality between a schema's declared field type and a
// concrete value must be decided by an explicit table").
func CheckValue(field Field, v value.Value) bool {
	if v.IsEmpty() {
		return field.IsOptional() || field.Default != nil
	}
	return v.Kind() == field.Type
}
