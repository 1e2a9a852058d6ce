package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/value"
)

func testSchema() *schema.Schema {
	s := schema.New()
	s.AddNode(&schema.NodeSchema{
		Label: "Person", Version: 1,
		Fields: []schema.Field{
			{Name: "name", Type: value.KindString},
			{Name: "email", Type: value.KindString, Prefix: schema.PrefixIndex},
			{Name: "age", Type: value.KindI64, Prefix: schema.PrefixOptional},
		},
	})
	s.AddEdge(&schema.EdgeSchema{
		Label: "Knows", Version: 1,
		From: schema.EndpointRef{Kind: schema.EndpointNode, Label: "Person"},
		To:   schema.EndpointRef{Kind: schema.EndpointNode, Label: "Person"},
		Fields: []schema.Field{
			{Name: "since", Type: value.KindI64, Prefix: schema.PrefixOptional},
		},
	})
	return s
}

func setup(t *testing.T) (*kv.Environment, *Graph) {
	t.Helper()
	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env, New(env, testSchema())
}

func TestAddAndGetNode(t *testing.T) {
	env, g := setup(t)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	id, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"name":  value.Str("Ada"),
		"email": value.Str("ada@example.com"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	n, err := g.GetNode(rtxn, id)
	require.NoError(t, err)
	assert.Equal(t, "Person", n.Label)
	name, _ := n.Properties["name"].AsString()
	assert.Equal(t, "Ada", name)
}

func TestAddNodeRejectsMissingRequiredField(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	defer wtxn.Discard()

	_, err = g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"email": value.Str("x@example.com"),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, herr.KindSchemaMismatch, errKind(t, err))
}

func TestAddNodeRejectsTypeMismatch(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	defer wtxn.Discard()

	_, err = g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"name":  value.I64(5),
		"email": value.Str("x@example.com"),
	}, nil)
	require.Error(t, err)
}

func TestAddEdgeRejectsMissingEndpoint(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	defer wtxn.Discard()

	ghost := value.NewID()
	other := value.NewID()
	_, err = g.AddEdge(env, wtxn, "Knows", ghost, other, nil, nil, BulkOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, herr.ErrEndpointMissing)
}

func TestAddEdgeBulkSkipsEndpointCheck(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	ghost := value.NewID()
	other := value.NewID()
	_, err = g.AddEdge(env, wtxn, "Knows", ghost, other, nil, nil, BulkOptions{SkipEndpointCheck: true})
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())
}

func TestAdjacencyIterationAndDropNodeCascade(t *testing.T) {
	env, g := setup(t)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	alice, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"name": value.Str("Alice"), "email": value.Str("alice@example.com"),
	}, nil)
	require.NoError(t, err)
	bob, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"name": value.Str("Bob"), "email": value.Str("bob@example.com"),
	}, nil)
	require.NoError(t, err)
	edgeID, err := g.AddEdge(env, wtxn, "Knows", alice, bob, map[string]value.Value{"since": value.I64(2020)}, nil, BulkOptions{})
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	out, err := g.OutEdges(rtxn, alice, "Knows")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, edgeID, out[0].EdgeID)
	assert.Equal(t, bob, out[0].Other)

	in, err := g.InEdges(rtxn, bob, "Knows")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, alice, in[0].Other)
	rtxn.Discard()

	// Dropping Alice must cascade-remove the edge from both adjacency lists
	// and remove Alice's own secondary index entry, all atomically.
	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, g.DropNode(env, wtxn2, alice))
	require.NoError(t, wtxn2.Commit())

	rtxn2 := env.BeginRead()
	defer rtxn2.Discard()
	_, err = g.GetNode(rtxn2, alice)
	assert.ErrorIs(t, err, herr.ErrNotFound)

	_, err = g.GetEdge(rtxn2, edgeID)
	assert.ErrorIs(t, err, herr.ErrNotFound)

	remainingIn, err := g.InEdges(rtxn2, bob, "Knows")
	require.NoError(t, err)
	assert.Empty(t, remainingIn)

	ids, err := g.NFromIndex(env, rtxn2, "email", value.Str("alice@example.com"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNFromIndexFindsNode(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	id, err := g.AddNode(env, wtxn, "Person", map[string]value.Value{
		"name": value.Str("Carol"), "email": value.Str("carol@example.com"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	ids, err := g.NFromIndex(env, rtxn, "email", value.Str("carol@example.com"))
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, id, ids[0])
}

func TestDropEdgeRemovesBothAdjacencyEntries(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	a, _ := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str("A"), "email": value.Str("a@x.com")}, nil)
	b, _ := g.AddNode(env, wtxn, "Person", map[string]value.Value{"name": value.Str("B"), "email": value.Str("b@x.com")}, nil)
	edgeID, err := g.AddEdge(env, wtxn, "Knows", a, b, nil, nil, BulkOptions{})
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, g.DropEdge(wtxn2, edgeID))
	require.NoError(t, wtxn2.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	out, err := g.OutEdges(rtxn, a, "Knows")
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err := g.InEdges(rtxn, b, "Knows")
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestBulkAddNodesAndEdges(t *testing.T) {
	env, g := setup(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	ids, err := g.BulkAddNodes(env, wtxn, "Person", []map[string]value.Value{
		{"name": value.Str("X"), "email": value.Str("x@x.com")},
		{"name": value.Str("Y"), "email": value.Str("y@x.com")},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	edgeIDs, err := g.BulkAddEdges(env, wtxn, "Knows", []BulkEdgeSpec{
		{From: ids[0], To: ids[1]},
	}, BulkOptions{})
	require.NoError(t, err)
	require.Len(t, edgeIDs, 1)
	require.NoError(t, wtxn.Commit())
}

func errKind(t *testing.T, err error) herr.Kind {
	t.Helper()
	k, ok := herr.KindOf(err)
	require.True(t, ok)
	return k
}
