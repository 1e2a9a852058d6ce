package vector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

func testEnv(t *testing.T) *kv.Environment {
	t.Helper()
	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestClampAppliesDefaultsAndBounds(t *testing.T) {
	c := Config{}.Clamp()
	assert.Equal(t, 16, c.M)
	assert.Equal(t, 128, c.EfConstruction)
	assert.Equal(t, maxEfSearch, c.EfSearch) // the 768 default is clamped to the 512 ceiling

	c2 := Config{M: 1000, EfConstruction: 1, EfSearch: 1}.Clamp()
	assert.Equal(t, maxM, c2.M)
	assert.Equal(t, minEfConstruction, c2.EfConstruction)
	assert.Equal(t, minEfSearch, c2.EfSearch)
}

func TestInsertAndSearchFindsNearest(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 2, DefaultConfig())

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	ids := make([]value.ID, 0, 20)
	target := value.NewID()
	for i := 0; i < 20; i++ {
		id := value.NewID()
		vec := []float64{float64(i), float64(i) * 2}
		if i == 10 {
			id = target
		}
		require.NoError(t, idx.Insert(wtxn, id, vec, nil))
		ids = append(ids, id)
	}
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	results, err := idx.Search(rtxn, []float64{10, 20}, 3, SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, target, results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestSearchOnEmptyIndexReturnsEntryPointMissing(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 2, DefaultConfig())
	rtxn := env.BeginRead()
	defer rtxn.Discard()
	_, err := idx.Search(rtxn, []float64{0, 0}, 1, SearchOptions{})
	assert.ErrorIs(t, err, herr.ErrEntryPointMissing)
}

func TestDeleteTombstonesAndExcludesFromSearch(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 2, DefaultConfig())

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	a := value.NewID()
	b := value.NewID()
	require.NoError(t, idx.Insert(wtxn, a, []float64{0, 0}, nil))
	require.NoError(t, idx.Insert(wtxn, b, []float64{100, 100}, nil))
	require.NoError(t, wtxn.Commit())

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.Delete(wtxn2, a))
	require.NoError(t, wtxn2.Commit())

	wtxn3, err := env.BeginWrite()
	require.NoError(t, err)
	err = idx.Delete(wtxn3, a)
	wtxn3.Discard()
	assert.ErrorIs(t, err, herr.ErrVectorDeleted)

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	results, err := idx.Search(rtxn, []float64{0, 0}, 5, SearchOptions{})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, a, r.ID)
	}
}

func TestDeleteOfEntryPointPromotesReplacement(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 2, DefaultConfig())

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	first := value.NewID()
	require.NoError(t, idx.Insert(wtxn, first, []float64{1, 1}, nil))
	second := value.NewID()
	require.NoError(t, idx.Insert(wtxn, second, []float64{2, 2}, nil))
	require.NoError(t, wtxn.Commit())

	ep, hasEntry, err := idx.getEntryPoint(env.BeginRead())
	require.NoError(t, err)
	require.True(t, hasEntry)

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, idx.Delete(wtxn2, ep.id))
	require.NoError(t, wtxn2.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	newEP, hasEntry, err := idx.getEntryPoint(rtxn)
	require.NoError(t, err)
	require.True(t, hasEntry)
	assert.NotEqual(t, ep.id, newEP.id)
}

func TestSearchRespectsFilter(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 1, DefaultConfig())

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	blocked := value.NewID()
	allowed := value.NewID()
	require.NoError(t, idx.Insert(wtxn, blocked, []float64{0}, map[string]value.Value{"tag": value.Str("blocked")}))
	require.NoError(t, idx.Insert(wtxn, allowed, []float64{0.1}, map[string]value.Value{"tag": value.Str("ok")}))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	results, err := idx.Search(rtxn, []float64{0}, 5, SearchOptions{
		ShouldTrickle: true,
		Filters: []FilterFunc{
			func(_ *kv.Txn, _ value.ID, props map[string]value.Value) (bool, error) {
				tag, _ := props["tag"].AsString()
				return tag != "blocked", nil
			},
		},
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, blocked, r.ID)
	}
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 3, DefaultConfig())
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	defer wtxn.Discard()
	err = idx.Insert(wtxn, value.NewID(), []float64{1, 2}, nil)
	assert.Error(t, err)
}

func TestEuclideanAndCosineAreZeroOnIdentity(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.Equal(t, 0.0, Euclidean(v, v))
	assert.InDelta(t, 0, Cosine(v, v), 1e-9)
}

func TestRecallAgainstBruteForce(t *testing.T) {
	env := testEnv(t)
	idx := New(env, "Doc", 4, DefaultConfig())

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	type rec struct {
		id  value.ID
		vec []float64
	}
	rng := rand.New(rand.NewSource(7))
	recs := make([]rec, 0, 200)
	for i := 0; i < 200; i++ {
		vec := []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		id := value.NewID()
		require.NoError(t, idx.Insert(wtxn, id, vec, nil))
		recs = append(recs, rec{id: id, vec: vec})
	}
	require.NoError(t, wtxn.Commit())

	query := []float64{0.5, 0.5, 0.5, 0.5}

	bruteForce := make([]Result, 0, len(recs))
	for _, r := range recs {
		bruteForce = append(bruteForce, Result{ID: r.id, Distance: Euclidean(query, r.vec)})
	}
	sortResults(bruteForce)
	trueTop := bruteForce[:10]
	trueSet := map[value.ID]bool{}
	for _, r := range trueTop {
		trueSet[r.ID] = true
	}

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	got, err := idx.Search(rtxn, query, 10, SearchOptions{})
	require.NoError(t, err)

	hits := 0
	for _, r := range got {
		if trueSet[r.ID] {
			hits++
		}
	}
	recall := float64(hits) / float64(len(trueTop))
	assert.GreaterOrEqual(t, recall, 0.8, "HNSW recall@10 should be at least 0.8 against brute force")
}

func sortResults(rs []Result) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].Distance < rs[j-1].Distance; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}
