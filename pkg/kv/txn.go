package kv

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/helixdb/helix-go/pkg/herr"
)

// Txn wraps a Badger transaction. Read txns see a consistent snapshot; the
// write txn is exclusive for its lifetime (spec §5). A Txn must be either
// Committed or Discarded exactly once.
type Txn struct {
	btxn     *badger.Txn
	env      *Environment
	writable bool
	done     bool
}

// Writable reports whether this transaction may mutate the store.
func (t *Txn) Writable() bool { return t.writable }

// Commit makes the transaction's writes visible atomically. Commit on a
// read transaction is a no-op discard (reads never need committing).
func (t *Txn) Commit() error {
	if t.done {
		return herr.ErrTxnPoisoned
	}
	t.done = true
	if t.writable {
		defer t.env.writeMu.Unlock()
	}
	if err := t.btxn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return herr.Wrap(herr.KindConflict, err, "commit")
		}
		return herr.Wrap(herr.KindStorage, err, "commit")
	}
	return nil
}

// Discard drops the transaction and all its writes, if any. Safe to call
// after Commit (no-op) or multiple times.
func (t *Txn) Discard() {
	if t.done {
		return
	}
	t.done = true
	if t.writable {
		defer t.env.writeMu.Unlock()
	}
	t.btxn.Discard()
}

func translateGetErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return herr.ErrNotFound
	}
	return herr.Wrap(herr.KindStorage, err, "get")
}
