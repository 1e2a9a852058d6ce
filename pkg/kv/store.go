package kv

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
	"github.com/helixdb/helix-go/pkg/herr"
)

// Store is a namespaced view over an Environment's single keyspace. All
// reads/writes through a Store are automatically prefixed so different
// sub-stores never collide, reproducing the "named sub-store" model of
// spec §4.1 over Badger's flat keyspace.
type Store struct {
	prefix []byte
}

func (s *Store) fullKey(key []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	out = append(out, key...)
	return out
}

// Get fetches the value stored at key, or herr.ErrNotFound.
func (s *Store) Get(t *Txn, key []byte) ([]byte, error) {
	item, err := t.btxn.Get(s.fullKey(key))
	if err != nil {
		return nil, translateGetErr(err)
	}
	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, herr.Wrap(herr.KindStorage, err, "get")
	}
	return out, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(t *Txn, key []byte) (bool, error) {
	_, err := t.btxn.Get(s.fullKey(key))
	if err == nil {
		return true, nil
	}
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return false, herr.Wrap(herr.KindStorage, err, "exists")
}

// Put writes val at key. t must be a write transaction.
func (s *Store) Put(t *Txn, key, val []byte) error {
	if !t.writable {
		return herr.New(herr.KindConflict, "put on read-only transaction")
	}
	if err := t.btxn.Set(s.fullKey(key), val); err != nil {
		return herr.Wrap(herr.KindStorage, err, "put")
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(t *Txn, key []byte) error {
	if !t.writable {
		return herr.New(herr.KindConflict, "delete on read-only transaction")
	}
	if err := t.btxn.Delete(s.fullKey(key)); err != nil {
		return herr.Wrap(herr.KindStorage, err, "delete")
	}
	return nil
}

// PutDup writes val under major‖suffix, reproducing a sorted-duplicates
// sub-store (out_edges, in_edges, hnsw_edges) as a single composite key: the
// duplicate "rows" under one major key are exactly the keys sharing the
// major‖ prefix, which ScanPrefix enumerates in byte order. This is the
// functional (not literal) equivalent of LMDB's fixed-width dupsort mode,
// since Badger has no native duplicate-key store — see DESIGN.md.
func (s *Store) PutDup(t *Txn, major, suffix, val []byte) error {
	key := append(append([]byte{}, major...), suffix...)
	return s.Put(t, key, val)
}

// DeleteDup removes the exact major‖suffix entry.
func (s *Store) DeleteDup(t *Txn, major, suffix []byte) error {
	key := append(append([]byte{}, major...), suffix...)
	return s.Delete(t, key)
}

// Entry is one (suffix, value) pair returned by a prefix scan, where suffix
// is the portion of the key after the scanned prefix.
type Entry struct {
	Suffix []byte
	Value  []byte
}

// ScanPrefix returns every entry whose key starts with prefix, in
// lexicographic (and therefore numeric, since ids are big-endian) key
// order. The returned suffix is the key with both the store prefix and the
// scan prefix stripped.
func (s *Store) ScanPrefix(t *Txn, prefix []byte) ([]Entry, error) {
	full := s.fullKey(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	it := t.btxn.NewIterator(opts)
	defer it.Close()

	var out []Entry
	for it.Seek(full); it.ValidForPrefix(full); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		suffix := append([]byte{}, k[len(full):]...)
		var val []byte
		if err := item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		}); err != nil {
			return nil, herr.Wrap(herr.KindStorage, err, "scan")
		}
		out = append(out, Entry{Suffix: suffix, Value: val})
	}
	return out, nil
}

// CountPrefix counts entries under prefix without materializing values.
func (s *Store) CountPrefix(t *Txn, prefix []byte) (int, error) {
	full := s.fullKey(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	opts.PrefetchValues = false
	it := t.btxn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(full); it.ValidForPrefix(full); it.Next() {
		n++
	}
	return n, nil
}

// HasPrefix reports whether any entry exists under prefix.
func (s *Store) HasPrefix(t *Txn, prefix []byte) (bool, error) {
	full := s.fullKey(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	opts.PrefetchValues = false
	it := t.btxn.NewIterator(opts)
	defer it.Close()
	it.Seek(full)
	return it.ValidForPrefix(full), nil
}

// Cursor gives streaming access over a prefix for callers that want to
// avoid materializing the whole match set (the traversal algebra's
// adjacency iteration, spec §4.2).
type Cursor struct {
	it      *badger.Iterator
	prefix  []byte
	full    []byte
	started bool
}

// NewCursor opens a streaming cursor over keys sharing prefix. The caller
// must call Close when done.
func (s *Store) NewCursor(t *Txn, prefix []byte) *Cursor {
	full := s.fullKey(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = full
	it := t.btxn.NewIterator(opts)
	return &Cursor{it: it, prefix: prefix, full: full}
}

// Next advances the cursor and reports whether an entry is available.
func (c *Cursor) Next() bool {
	if !c.started {
		c.started = true
		c.it.Seek(c.full)
	} else {
		c.it.Next()
	}
	return c.it.ValidForPrefix(c.full)
}

// Entry returns the current (suffix, value) pair.
func (c *Cursor) Entry() (Entry, error) {
	item := c.it.Item()
	k := item.KeyCopy(nil)
	suffix := append([]byte{}, k[len(c.full):]...)
	var val []byte
	err := item.Value(func(v []byte) error {
		val = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return Entry{}, herr.Wrap(herr.KindStorage, err, "cursor entry")
	}
	return Entry{Suffix: suffix, Value: val}, nil
}

// Close releases the cursor's resources.
func (c *Cursor) Close() { c.it.Close() }

// HasPrefixBytes reports whether key starts with prefix — a small helper
// used by callers that already hold raw keys (e.g. migration scans).
func HasPrefixBytes(key, prefix []byte) bool {
	return bytes.HasPrefix(key, prefix)
}
