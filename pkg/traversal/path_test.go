package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/value"
)

func pathTestSchema() *schema.Schema {
	s := schema.New()
	s.AddNode(&schema.NodeSchema{
		Label: "Person", Version: 1,
		Fields: []schema.Field{
			{Name: "name", Type: value.KindString},
		},
	})
	s.AddEdge(&schema.EdgeSchema{
		Label: "Knows", Version: 1,
		From: schema.EndpointRef{Kind: schema.EndpointNode, Label: "Person"},
		To:   schema.EndpointRef{Kind: schema.EndpointNode, Label: "Person"},
	})
	return s
}

func setupEngine(t *testing.T) (*kv.Environment, *graph.Graph, *Engine) {
	t.Helper()
	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	g := graph.New(env, pathTestSchema())
	return env, g, NewEngine(env, g, pathTestSchema())
}

// TestShortestPathLinearChain exercises the linear n1-n2-n3-n4 chain
// (seed scenario #2): shortest_path("knows", n1, n4) must yield a single
// Path with nodes [n1,n2,n3,n4] and edges [edge1,edge2,edge3] in order.
func TestShortestPathLinearChain(t *testing.T) {
	env, g, e := setupEngine(t)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	names := []string{"n1", "n2", "n3", "n4"}
	ids := make([]value.ID, len(names))
	for i, name := range names {
		id, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str(name)}, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	edgeIDs := make([]value.ID, 0, 3)
	for i := 0; i < len(ids)-1; i++ {
		id, err := g.AddEdge(env, wtxn, "Knows", ids[i], ids[i+1], nil, nil, graph.BulkOptions{})
		require.NoError(t, err)
		edgeIDs = append(edgeIDs, id)
	}
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()

	src := fromSlice([]Val{NodeVal(&graph.Node{ID: ids[0], Label: "Person"})})
	out := e.ShortestPath(rtxn, src, "Knows", ids[3])

	results, err := Collect(out)
	require.NoError(t, err)
	require.Len(t, results, 1)

	path := results[0]
	assert.Equal(t, KindPath, path.Kind)
	require.Len(t, path.Path.Nodes, 4)
	for i, n := range path.Path.Nodes {
		assert.Equal(t, ids[i], n.ID)
	}
	require.Len(t, path.Path.Edges, 3)
	for i, ed := range path.Path.Edges {
		assert.Equal(t, edgeIDs[i], ed.ID)
	}
}

func TestShortestPathNoPathYieldsEmpty(t *testing.T) {
	env, g, e := setupEngine(t)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	a, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str("a")}, nil)
	require.NoError(t, err)
	b, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str("b")}, nil)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()

	src := fromSlice([]Val{NodeVal(&graph.Node{ID: a, Label: "Person"})})
	out := e.ShortestPath(rtxn, src, "Knows", b)

	results, err := Collect(out)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestShortestPathSameNodeYieldsSingleNodePath(t *testing.T) {
	env, g, e := setupEngine(t)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	a, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str("a")}, nil)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()

	src := fromSlice([]Val{NodeVal(&graph.Node{ID: a, Label: "Person"})})
	out := e.ShortestPath(rtxn, src, "Knows", a)

	results, err := Collect(out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Path.Nodes, 1)
	assert.Empty(t, results[0].Path.Edges)
}
