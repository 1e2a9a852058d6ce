// Package kv wraps BadgerDB as HelixDB's single-writer/multi-reader
// transactional key-value store (spec §4.1, §5). It stands in for the
// memory-mapped B+tree the specification describes: Badger is itself an
// embedded, crash-safe LSM store with the same concurrency contract
// (snapshot-isolated readers, one writer at a time), so every operation in
// pkg/graph, pkg/vector, and pkg/bm25 is built on the Environment/Store/Txn
// types here rather than talking to Badger directly.
package kv

import (
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/helixdb/helix-go/pkg/herr"
)

// maxMapSizeGB is the spec-mandated cap on the configured map size (§6,
// db_max_size_gb).
const maxMapSizeGB = 9998

// Options configures an Environment.
type Options struct {
	// Path is the on-disk directory for the environment's files. Ignored
	// when InMemory is true.
	Path string

	// InMemory runs the environment without touching disk, for tests.
	InMemory bool

	// MapSizeGB is the informational map-size cap, clamped to 9998 GB.
	// Badger has no fixed-map-size concept; the value is retained so
	// callers can read back the effective configuration and so a resize
	// always requires re-opening the environment, per spec §4.1.
	MapSizeGB int

	// MaxReaders is the informational concurrent-reader budget (spec
	// requires >=200); Badger's MVCC readers aren't capped the same way,
	// so this is advisory and surfaced via Stats.
	MaxReaders int

	// SyncWrites forces fsync on every commit. Slower, more durable.
	SyncWrites bool

	// Logger receives Badger's internal log lines. Defaults to a thin
	// adapter over the standard log package.
	Logger badger.Logger
}

func (o Options) clamp() Options {
	if o.MapSizeGB <= 0 || o.MapSizeGB > maxMapSizeGB {
		o.MapSizeGB = maxMapSizeGB
	}
	if o.MaxReaders <= 0 {
		o.MaxReaders = 200
	}
	return o
}

// Environment is the process-wide handle shared by every store subsystem.
// It is a plain struct passed by pointer (Go's native reference semantics
// already give it shared ownership) rather than a package-level singleton,
// so multiple independent environments can coexist in one process — needed
// for tests that open several stores side by side.
type Environment struct {
	db      *badger.DB
	opts    Options
	writeMu sync.Mutex
	closed  bool
}

// Open creates or opens an Environment at opts.Path (or in memory).
func Open(opts Options) (*Environment, error) {
	opts = opts.clamp()

	bopts := badger.DefaultOptions(opts.Path)
	bopts = bopts.WithInMemory(opts.InMemory)
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(opts.Logger)
	} else {
		bopts = bopts.WithLogger(&stdLogger{})
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, herr.Wrap(herr.KindStorage, err, "open environment at %q", opts.Path)
	}

	return &Environment{db: db, opts: opts}, nil
}

// Close releases the environment. It is an error to use the Environment, or
// any Txn derived from it, afterwards.
func (e *Environment) Close() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.db.Close(); err != nil {
		return herr.Wrap(herr.KindStorage, err, "close environment")
	}
	return nil
}

// BeginRead opens a snapshot-consistent read transaction. Any number of read
// transactions may be open concurrently with each other and with the
// current write transaction, per spec §5.
func (e *Environment) BeginRead() *Txn {
	return &Txn{btxn: e.db.NewTransaction(false), env: e, writable: false}
}

// BeginWrite acquires the exclusive writer and returns a write transaction.
// Acquiring the writer blocks until any other write transaction commits or
// discards — the spec's single-writer model (§5) is enforced here rather
// than left to Badger's (more permissive) concurrent-Update semantics.
func (e *Environment) BeginWrite() (*Txn, error) {
	e.writeMu.Lock()
	if e.closed {
		e.writeMu.Unlock()
		return nil, herr.New(herr.KindStorage, "environment is closed")
	}
	return &Txn{btxn: e.db.NewTransaction(true), env: e, writable: true}, nil
}

// Store returns a namespaced handle for the given sub-store name. Stores
// are opened lazily and cheaply — there is no separate "create sub-store"
// step the way there is for an LMDB-backed implementation, since every
// sub-store is really just a key prefix within Badger's single keyspace.
func (e *Environment) Store(name string) *Store {
	return &Store{prefix: []byte(name + "\x00")}
}

// Stats reports the environment's informational configuration, exposed for
// diagnostics/CLI use.
type Stats struct {
	MapSizeGB  int
	MaxReaders int
}

func (e *Environment) Stats() Stats {
	return Stats{MapSizeGB: e.opts.MapSizeGB, MaxReaders: e.opts.MaxReaders}
}

type stdLogger struct{}

func (l *stdLogger) Errorf(f string, args ...any)   { log.Printf("helixdb/kv ERROR: "+f, args...) }
func (l *stdLogger) Warningf(f string, args ...any) { log.Printf("helixdb/kv WARN: "+f, args...) }
func (l *stdLogger) Infof(f string, args ...any)    {}
func (l *stdLogger) Debugf(f string, args ...any)   {}

// Kind names a named sub-store, kept distinct from arbitrary strings so
// call sites read as "the out_edges store" rather than a raw literal.
type Kind string

const (
	Nodes         Kind = "nodes"
	Edges         Kind = "edges"
	OutEdges      Kind = "out_edges"
	InEdges       Kind = "in_edges"
	Vectors       Kind = "vectors"
	VectorData    Kind = "vector_data"
	HNSWEdges     Kind = "hnsw_edges"
	BM25Postings  Kind = "bm25_postings"
	BM25DocLength Kind = "bm25_doc_lengths"
	BM25Meta      Kind = "bm25_metadata"
	Meta          Kind = "meta"
)

func (k Kind) String() string { return string(k) }

// SecondaryIndex returns the store Kind-equivalent name for a secondary
// index over the given schema field.
func SecondaryIndex(field string) string {
	return "secondary:" + field
}
