package graph

import (
	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/value"
)

// Graph is the node/edge store: bit-exact key layouts over pkg/kv, built
// against a loaded pkg/schema.Schema. A Graph is cheap to construct and
// holds no state of its own beyond the store handles, so callers are free
// to keep one per Environment.
type Graph struct {
	schema        *schema.Schema
	nodes         *kv.Store
	edges         *kv.Store
	outEdges      *kv.Store
	inEdges       *kv.Store
	indices       map[string]*kv.Store // field -> secondary index store
	vectorChecker VectorChecker
}

// VectorChecker lets the top-level engine wire vector-endpoint existence
// checks into AddEdge without pkg/graph importing pkg/vector directly
// (pkg/graph and pkg/vector are dependency-order siblings, spec §2).
type VectorChecker interface {
	VectorExists(txn *kv.Txn, id value.ID) (bool, error)
}

// SetVectorChecker installs the checker used to validate vector-kind edge
// endpoints. Without one, vector endpoints are accepted unchecked.
func (g *Graph) SetVectorChecker(c VectorChecker) { g.vectorChecker = c }

// New constructs a Graph over env, using sch for field declarations and the
// migration ladder. Secondary index stores are opened lazily on first use
// via indexStore, so New does not need to enumerate every INDEX field.
func New(env *kv.Environment, sch *schema.Schema) *Graph {
	return &Graph{
		schema:   sch,
		nodes:    env.Store(string(kv.Nodes)),
		edges:    env.Store(string(kv.Edges)),
		outEdges: env.Store(string(kv.OutEdges)),
		inEdges:  env.Store(string(kv.InEdges)),
		indices:  map[string]*kv.Store{},
	}
}

func (g *Graph) indexStore(env *kv.Environment, field string) *kv.Store {
	if s, ok := g.indices[field]; ok {
		return s
	}
	s := env.Store(kv.SecondaryIndex(field))
	g.indices[field] = s
	return s
}

// BulkOptions controls the endpoint-existence check AddEdge otherwise always
// performs (spec §4.2: "unless explicitly suppressed by the caller for bulk
// load").
type BulkOptions struct {
	SkipEndpointCheck bool
}

// AddNode validates props against sch, assigns an id if absent, writes
// nodes[id], and maintains one secondary-index entry per declared INDEX
// field present in props.
func (g *Graph) AddNode(env *kv.Environment, txn *kv.Txn, label string, props map[string]value.Value, id *value.ID) (value.ID, error) {
	sc, ok := g.schema.Node(label)
	if !ok {
		return value.ID{}, herr.New(herr.KindSchemaMismatch, "unknown node label %q", label)
	}
	if err := checkFields(sc.Fields, props); err != nil {
		return value.ID{}, err
	}

	nodeID := value.NewID()
	if id != nil {
		nodeID = *id
		exists, err := g.nodes.Exists(txn, nodeKey(nodeID))
		if err != nil {
			return value.ID{}, err
		}
		if exists {
			return value.ID{}, herr.New(herr.KindConflict, "node %s already exists", nodeID)
		}
	}

	data := encodeNode(label, sc.Version, sc.Fields, props)
	if err := g.nodes.Put(txn, nodeKey(nodeID), data); err != nil {
		return value.ID{}, err
	}

	for _, f := range sc.Fields {
		if !f.IsIndexed() {
			continue
		}
		v, present := props[f.Name]
		if !present {
			continue
		}
		idx := g.indexStore(env, f.Name)
		if err := idx.PutDup(txn, secondaryKey(v), nodeID.Bytes(), nil); err != nil {
			return value.ID{}, err
		}
	}

	return nodeID, nil
}

// AddEdge validates endpoint existence (unless bulk.SkipEndpointCheck),
// writes edges[id], and appends adjacency duplicates to out_edges/in_edges.
func (g *Graph) AddEdge(env *kv.Environment, txn *kv.Txn, label string, from, to value.ID, props map[string]value.Value, id *value.ID, bulk BulkOptions) (value.ID, error) {
	sc, ok := g.schema.Edge(label)
	if !ok {
		return value.ID{}, herr.New(herr.KindSchemaMismatch, "unknown edge label %q", label)
	}
	if err := checkFields(sc.Fields, props); err != nil {
		return value.ID{}, err
	}

	if !bulk.SkipEndpointCheck {
		if err := g.checkEndpoint(txn, sc.From, from); err != nil {
			return value.ID{}, err
		}
		if err := g.checkEndpoint(txn, sc.To, to); err != nil {
			return value.ID{}, err
		}
	}

	edgeID := value.NewID()
	if id != nil {
		edgeID = *id
	}

	e := &Edge{
		ID: edgeID, Label: label, Version: sc.Version,
		From: from, FromKind: sc.From.Kind,
		To: to, ToKind: sc.To.Kind,
		Properties: props,
	}
	data := encodeEdge(e, sc.Fields)
	if err := g.edges.Put(txn, edgeKey(edgeID), data); err != nil {
		return value.ID{}, err
	}

	labelHash := labelHashBytes(label)
	if err := g.outEdges.PutDup(txn, adjKey(from, labelHash), edgeID.Bytes(), adjValue(edgeID, to)); err != nil {
		return value.ID{}, err
	}
	if err := g.inEdges.PutDup(txn, adjKey(to, labelHash), edgeID.Bytes(), adjValue(edgeID, from)); err != nil {
		return value.ID{}, err
	}
	return edgeID, nil
}

func (g *Graph) checkEndpoint(txn *kv.Txn, ref schema.EndpointRef, id value.ID) error {
	switch ref.Kind {
	case schema.EndpointNode:
		exists, err := g.nodes.Exists(txn, nodeKey(id))
		if err != nil {
			return err
		}
		if !exists {
			return herr.ErrEndpointMissing
		}
	case schema.EndpointVector:
		if g.vectorChecker == nil {
			return nil
		}
		exists, err := g.vectorChecker.VectorExists(txn, id)
		if err != nil {
			return err
		}
		if !exists {
			return herr.ErrEndpointMissing
		}
	}
	return nil
}

// GetNode fetches nodes[id] and upgrades it through the migration ladder to
// the schema's latest version.
func (g *Graph) GetNode(txn *kv.Txn, id value.ID) (*Node, error) {
	raw, err := g.nodes.Get(txn, nodeKey(id))
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(id, raw, g.schema)
	if err != nil {
		return nil, err
	}
	label, version, props, err := g.schema.UpgradeNode(n.Label, n.Version, n.Properties)
	if err != nil {
		return nil, err
	}
	n.Label, n.Version, n.Properties = label, version, props
	return n, nil
}

// GetEdge fetches edges[id] and upgrades it through the migration ladder.
func (g *Graph) GetEdge(txn *kv.Txn, id value.ID) (*Edge, error) {
	raw, err := g.edges.Get(txn, edgeKey(id))
	if err != nil {
		return nil, err
	}
	e, err := decodeEdge(id, raw, g.schema)
	if err != nil {
		return nil, err
	}
	label, version, props, err := g.schema.UpgradeEdge(e.Label, e.Version, e.Properties)
	if err != nil {
		return nil, err
	}
	e.Label, e.Version, e.Properties = label, version, props
	return e, nil
}

// UpdateNode validates the merged property set against the node's declared
// schema, re-maintains any secondary index whose indexed field changed
// value, and rewrites the record in place. Used by the traversal algebra's
// update step (spec §4.5).
func (g *Graph) UpdateNode(env *kv.Environment, txn *kv.Txn, id value.ID, props map[string]value.Value) error {
	n, err := g.GetNode(txn, id)
	if err != nil {
		return err
	}
	sc, ok := g.schema.Node(n.Label)
	if !ok {
		return herr.New(herr.KindSchemaMismatch, "unknown node label %q", n.Label)
	}
	if err := checkFields(sc.Fields, props); err != nil {
		return err
	}

	for _, f := range sc.Fields {
		if !f.IsIndexed() {
			continue
		}
		oldV, oldPresent := n.Properties[f.Name]
		newV, newPresent := props[f.Name]
		if oldPresent && (!newPresent || !oldV.Equal(newV)) {
			idx := g.indexStore(env, f.Name)
			if err := idx.DeleteDup(txn, secondaryKey(oldV), id.Bytes()); err != nil {
				return err
			}
		}
		if newPresent && (!oldPresent || !oldV.Equal(newV)) {
			idx := g.indexStore(env, f.Name)
			if err := idx.PutDup(txn, secondaryKey(newV), id.Bytes(), nil); err != nil {
				return err
			}
		}
	}

	data := encodeNode(n.Label, sc.Version, sc.Fields, props)
	return g.nodes.Put(txn, nodeKey(id), data)
}

// UpdateEdge validates the merged property set against the edge's declared
// schema and rewrites the record in place, preserving From/To/endpoint kind.
func (g *Graph) UpdateEdge(txn *kv.Txn, id value.ID, props map[string]value.Value) error {
	e, err := g.GetEdge(txn, id)
	if err != nil {
		return err
	}
	sc, ok := g.schema.Edge(e.Label)
	if !ok {
		return herr.New(herr.KindSchemaMismatch, "unknown edge label %q", e.Label)
	}
	if err := checkFields(sc.Fields, props); err != nil {
		return err
	}
	e.Properties = props
	e.Version = sc.Version
	data := encodeEdge(e, sc.Fields)
	return g.edges.Put(txn, edgeKey(id), data)
}

// DropEdge reads the edge record to recover from/to/label, then removes the
// edge record and both adjacency duplicates.
func (g *Graph) DropEdge(txn *kv.Txn, id value.ID) error {
	e, err := g.GetEdge(txn, id)
	if err != nil {
		return err
	}
	return g.dropEdgeRecord(txn, e)
}

func (g *Graph) dropEdgeRecord(txn *kv.Txn, e *Edge) error {
	labelHash := labelHashBytes(e.Label)
	if err := g.outEdges.DeleteDup(txn, adjKey(e.From, labelHash), e.ID.Bytes()); err != nil {
		return err
	}
	if err := g.inEdges.DeleteDup(txn, adjKey(e.To, labelHash), e.ID.Bytes()); err != nil {
		return err
	}
	return g.edges.Delete(txn, edgeKey(e.ID))
}

// DropNode performs the two-pass cascade from spec §4.2: enumerate incident
// edges from both adjacency directions, remove each edge record plus its
// other-endpoint adjacency duplicate, remove secondary-index entries, then
// remove the node record itself. All within the caller's single transaction.
func (g *Graph) DropNode(env *kv.Environment, txn *kv.Txn, id value.ID) error {
	n, err := g.GetNode(txn, id)
	if err != nil {
		return err
	}

	// Pass 1: collect every incident edge id before mutating anything, since
	// deleting while a cursor is open over the same prefix has
	// implementation-defined visibility (spec §9).
	var incident []value.ID
	outEntries, err := g.outEdges.ScanPrefix(txn, id.Bytes())
	if err != nil {
		return err
	}
	for _, ent := range outEntries {
		if edgeID, _, ok := parseAdjValue(ent.Value); ok {
			incident = append(incident, edgeID)
		}
	}
	inEntries, err := g.inEdges.ScanPrefix(txn, id.Bytes())
	if err != nil {
		return err
	}
	for _, ent := range inEntries {
		if edgeID, _, ok := parseAdjValue(ent.Value); ok {
			incident = append(incident, edgeID)
		}
	}

	// Pass 2: drop every incident edge (removes both adjacency duplicates).
	for _, edgeID := range incident {
		e, err := g.GetEdge(txn, edgeID)
		if err != nil {
			if herr.Is(err, herr.KindNotFound) {
				continue
			}
			return err
		}
		if err := g.dropEdgeRecord(txn, e); err != nil {
			return err
		}
	}

	sc, ok := g.schema.NodeAt(n.Label, n.Version)
	if !ok {
		sc, _ = g.schema.Node(n.Label)
	}
	if sc != nil {
		for _, f := range sc.Fields {
			if !f.IsIndexed() {
				continue
			}
			v, present := n.Properties[f.Name]
			if !present {
				continue
			}
			idx := g.indexStore(env, f.Name)
			if err := idx.DeleteDup(txn, secondaryKey(v), id.Bytes()); err != nil {
				return err
			}
		}
	}

	return g.nodes.Delete(txn, nodeKey(id))
}

// AllNodeIDs returns every node id in the store, in key (and therefore
// numeric id) order. Used by the traversal algebra's n_from_type source
// step, which has no separate label index to scan instead.
func (g *Graph) AllNodeIDs(txn *kv.Txn) ([]value.ID, error) {
	entries, err := g.nodes.ScanPrefix(txn, nil)
	if err != nil {
		return nil, err
	}
	out := make([]value.ID, 0, len(entries))
	for _, ent := range entries {
		id, err := value.IDFromBytes(ent.Suffix)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// AllEdgeIDs returns every edge id in the store, symmetric to AllNodeIDs.
func (g *Graph) AllEdgeIDs(txn *kv.Txn) ([]value.ID, error) {
	entries, err := g.edges.ScanPrefix(txn, nil)
	if err != nil {
		return nil, err
	}
	out := make([]value.ID, 0, len(entries))
	for _, ent := range entries {
		id, err := value.IDFromBytes(ent.Suffix)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// NFromIndex looks up a node by the value of one of its declared INDEX
// fields.
func (g *Graph) NFromIndex(env *kv.Environment, txn *kv.Txn, field string, key value.Value) ([]value.ID, error) {
	idx := g.indexStore(env, field)
	entries, err := idx.ScanPrefix(txn, secondaryKey(key))
	if err != nil {
		return nil, err
	}
	out := make([]value.ID, 0, len(entries))
	for _, ent := range entries {
		id, err := value.IDFromBytes(ent.Suffix)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Adjacent is one (edge-id, other-endpoint-id) pair yielded by adjacency
// iteration.
type Adjacent struct {
	EdgeID value.ID
	Other  value.ID
}

// OutEdges returns the (edge-id, to-id) pairs under out_edges[from,label],
// collected into a slice; OutEdgesCursor streams the same entries.
func (g *Graph) OutEdges(txn *kv.Txn, from value.ID, label string) ([]Adjacent, error) {
	return g.adjacency(txn, g.outEdges, from, label)
}

// InEdges returns the (edge-id, from-id) pairs under in_edges[to,label],
// collected into a slice; InEdgesCursor streams the same entries.
func (g *Graph) InEdges(txn *kv.Txn, to value.ID, label string) ([]Adjacent, error) {
	return g.adjacency(txn, g.inEdges, to, label)
}

func (g *Graph) adjacency(txn *kv.Txn, store *kv.Store, id value.ID, label string) ([]Adjacent, error) {
	prefix := adjKey(id, labelHashBytes(label))
	entries, err := store.ScanPrefix(txn, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Adjacent, 0, len(entries))
	for _, ent := range entries {
		edgeID, otherID, ok := parseAdjValue(ent.Value)
		if !ok {
			continue
		}
		out = append(out, Adjacent{EdgeID: edgeID, Other: otherID})
	}
	return out, nil
}

// OutEdgesCursor streams out_edges adjacency without materializing the
// whole list, for the traversal algebra's lazy pipelines; InEdgesCursor
// does the same over in_edges.
func (g *Graph) OutEdgesCursor(txn *kv.Txn, from value.ID, label string) *kv.Cursor {
	return g.outEdges.NewCursor(txn, adjKey(from, labelHashBytes(label)))
}

func (g *Graph) InEdgesCursor(txn *kv.Txn, to value.ID, label string) *kv.Cursor {
	return g.inEdges.NewCursor(txn, adjKey(to, labelHashBytes(label)))
}

// BulkAddNodes inserts many nodes in one caller-supplied transaction,
// returning the assigned ids in input order.
func (g *Graph) BulkAddNodes(env *kv.Environment, txn *kv.Txn, label string, propsList []map[string]value.Value) ([]value.ID, error) {
	ids := make([]value.ID, 0, len(propsList))
	for _, props := range propsList {
		id, err := g.AddNode(env, txn, label, props, nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BulkEdgeSpec is one edge to insert via BulkAddEdges.
type BulkEdgeSpec struct {
	From, To value.ID
	Props    map[string]value.Value
}

// BulkAddEdges inserts many edges of the same label. The per-endpoint
// existence check runs unless opts.SkipEndpointCheck is set (spec §4.2's
// bulk-load opt-in).
func (g *Graph) BulkAddEdges(env *kv.Environment, txn *kv.Txn, label string, specs []BulkEdgeSpec, opts BulkOptions) ([]value.ID, error) {
	ids := make([]value.ID, 0, len(specs))
	for _, spec := range specs {
		id, err := g.AddEdge(env, txn, label, spec.From, spec.To, spec.Props, nil, opts)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func checkFields(fields []schema.Field, props map[string]value.Value) error {
	for _, f := range fields {
		v, present := props[f.Name]
		if !present {
			if f.IsOptional() || f.Default != nil {
				continue
			}
			return herr.New(herr.KindSchemaMismatch, "missing required field %q", f.Name)
		}
		if !schema.CheckValue(f, v) {
			return herr.New(herr.KindSchemaMismatch, "field %q: expected %s, got %s", f.Name, f.Type, v.TypeName())
		}
	}
	return nil
}
