package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
	"github.com/helixdb/helix-go/pkg/vector"
)

func testEnv(t *testing.T) *kv.Environment {
	t.Helper()
	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestInsertAndSearchRanksByRelevance(t *testing.T) {
	env := testEnv(t)
	idx := New(env)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	strong := value.NewID()
	weak := value.NewID()
	unrelated := value.NewID()
	require.NoError(t, idx.InsertDoc(wtxn, strong, "graph database vector search graph"))
	require.NoError(t, idx.InsertDoc(wtxn, weak, "graph theory introduction"))
	require.NoError(t, idx.InsertDoc(wtxn, unrelated, "cooking pasta recipes"))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.Search(rtxn, "graph search", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, strong, hits[0].ID)
	for _, h := range hits {
		assert.NotEqual(t, unrelated, h.ID)
	}
}

func TestEmptyQueryReturnsNoResults(t *testing.T) {
	env := testEnv(t)
	idx := New(env)

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.InsertDoc(wtxn, value.NewID(), "some content here"))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.Search(rtxn, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchOnEmptyIndexReturnsNoResults(t *testing.T) {
	env := testEnv(t)
	idx := New(env)
	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.Search(rtxn, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteDocExcludesFromSearch(t *testing.T) {
	env := testEnv(t)
	idx := New(env)

	id := value.NewID()
	text := "graph database engine"

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.InsertDoc(wtxn, id, text))
	require.NoError(t, wtxn.Commit())

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.DeleteDoc(wtxn2, id, text))
	require.NoError(t, wtxn2.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.Search(rtxn, "graph database", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	m, err := idx.getMetadata(rtxn)
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalDocs)
	assert.Equal(t, 0, m.TotalLength)
}

func TestUpdateDocReindexesUnderSameID(t *testing.T) {
	env := testEnv(t)
	idx := New(env)

	id := value.NewID()
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.InsertDoc(wtxn, id, "apples and oranges"))
	require.NoError(t, wtxn.Commit())

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.UpdateDoc(wtxn2, id, "apples and oranges", "bananas and grapes"))
	require.NoError(t, wtxn2.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()

	oldHits, err := idx.Search(rtxn, "apples oranges", 10)
	require.NoError(t, err)
	assert.Empty(t, oldHits)

	newHits, err := idx.Search(rtxn, "bananas grapes", 10)
	require.NoError(t, err)
	require.Len(t, newHits, 1)
	assert.Equal(t, id, newHits[0].ID)
}

func TestHybridSearchTextOnlyMatchesBM25Order(t *testing.T) {
	env := testEnv(t)
	idx := New(env)
	vecIdx := vector.New(env, "Doc", 2, vector.DefaultConfig())

	strong := value.NewID()
	weak := value.NewID()

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.InsertDoc(wtxn, strong, "database database database"))
	require.NoError(t, idx.InsertDoc(wtxn, weak, "database"))
	require.NoError(t, vecIdx.Insert(wtxn, strong, []float64{100, 100}, nil))
	require.NoError(t, vecIdx.Insert(wtxn, weak, []float64{0, 0}, nil))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.HybridSearch(rtxn, vecIdx, "database", []float64{0, 0}, 1.0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, strong, hits[0].ID)
}

func TestHybridSearchVectorOnlyMatchesNearest(t *testing.T) {
	env := testEnv(t)
	idx := New(env)
	vecIdx := vector.New(env, "Doc", 2, vector.DefaultConfig())

	near := value.NewID()
	far := value.NewID()

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.InsertDoc(wtxn, near, "irrelevant text"))
	require.NoError(t, idx.InsertDoc(wtxn, far, "irrelevant text irrelevant text"))
	require.NoError(t, vecIdx.Insert(wtxn, near, []float64{1, 1}, nil))
	require.NoError(t, vecIdx.Insert(wtxn, far, []float64{50, 50}, nil))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	hits, err := idx.HybridSearch(rtxn, vecIdx, "irrelevant text", []float64{1, 1}, 0.0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, near, hits[0].ID)
}
