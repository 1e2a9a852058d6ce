package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEnv(t *testing.T) *Environment {
	t.Helper()
	env, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestPutGetDelete(t *testing.T) {
	env := openTestEnv(t)
	store := env.Store(string(Nodes))

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, store.Put(wtxn, []byte("a"), []byte("alice")))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	got, err := store.Get(rtxn, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("alice"), got)

	wtxn2, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, store.Delete(wtxn2, []byte("a")))
	require.NoError(t, wtxn2.Commit())

	rtxn2 := env.BeginRead()
	defer rtxn2.Discard()
	_, err = store.Get(rtxn2, []byte("a"))
	assert.Error(t, err)
}

func TestWriteTxnIsExclusive(t *testing.T) {
	env := openTestEnv(t)
	wtxn, err := env.BeginWrite()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wtxn2, err := env.BeginWrite()
		require.NoError(t, err)
		close(done)
		wtxn2.Discard()
	}()

	select {
	case <-done:
		t.Fatal("second write transaction should not start before the first is released")
	default:
	}

	wtxn.Discard()
	<-done
}

func TestScanPrefixOrdersByKey(t *testing.T) {
	env := openTestEnv(t)
	store := env.Store(string(OutEdges))

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	major := []byte("node1:knows")
	require.NoError(t, store.PutDup(wtxn, major, []byte{0x00}, []byte("edge-a")))
	require.NoError(t, store.PutDup(wtxn, major, []byte{0x01}, []byte("edge-b")))
	require.NoError(t, store.PutDup(wtxn, []byte("node2:knows"), []byte{0x00}, []byte("edge-c")))
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	entries, err := store.ScanPrefix(rtxn, major)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("edge-a"), entries[0].Value)
	assert.Equal(t, []byte("edge-b"), entries[1].Value)
}

func TestDiscardDropsWrites(t *testing.T) {
	env := openTestEnv(t)
	store := env.Store(string(Nodes))

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	require.NoError(t, store.Put(wtxn, []byte("ghost"), []byte("x")))
	wtxn.Discard()

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	_, err = store.Get(rtxn, []byte("ghost"))
	assert.Error(t, err, "discarded writes must not be visible")
}

func TestCursorStreams(t *testing.T) {
	env := openTestEnv(t)
	store := env.Store(string(OutEdges))

	wtxn, err := env.BeginWrite()
	require.NoError(t, err)
	major := []byte("n1:L")
	for i := byte(0); i < 5; i++ {
		require.NoError(t, store.PutDup(wtxn, major, []byte{i}, []byte{i}))
	}
	require.NoError(t, wtxn.Commit())

	rtxn := env.BeginRead()
	defer rtxn.Discard()
	cur := store.NewCursor(rtxn, major)
	defer cur.Close()

	count := 0
	for cur.Next() {
		count++
	}
	assert.Equal(t, 5, count)
}
