// Package hql is HelixQL's top-level entrypoint: Load runs source text
// through the parser and analyzer, Schema.Compile runs the code generator
// over the result, and Open ties a loaded schema to an on-disk (or in-memory) store,
// registering the vector/full-text sub-indices the schema declares and
// compiling every query against the resulting engine.
package hql

import (
	"github.com/helixdb/helix-go/pkg/bm25"
	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/hql/analyzer"
	"github.com/helixdb/helix-go/pkg/hql/codegen"
	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/hql/parser"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/traversal"
	"github.com/helixdb/helix-go/pkg/vector"
)

// Schema is a fully parsed and semantically validated HQL source unit: the
// resolved storage schema plus every query, ready to be bound to a store
// via Compile.
type Schema struct {
	Raw      *schema.Schema
	resolved []*analyzer.ResolvedQuery
}

// Load parses and analyzes source (the concatenation of schema.hx, every
// *.hx query file, and any migration blocks — spec §6: "the compiler
// consumes these file contents as one logical source"). Diagnostics are
// always returned, even on success, since warnings don't fail compilation.
func Load(source string) (*Schema, []diag.Diagnostic, error) {
	prog, diags := parser.Parse(source)
	if diag.HasErrors(diags) {
		return nil, diags, herr.New(herr.KindParse, "parse failed with %d error(s)", countErrors(diags))
	}

	sch, resolved, semDiags := analyzer.Analyze(prog)
	diags = append(diags, semDiags...)
	if diag.HasErrors(diags) {
		return nil, diags, herr.New(herr.KindSemantic, "semantic analysis failed with %d error(s)", countErrors(diags))
	}

	return &Schema{Raw: sch, resolved: resolved}, diags, nil
}

func countErrors(ds []diag.Diagnostic) int {
	n := 0
	for _, d := range ds {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}

// Compile generates one CompiledQuery per QUERY declaration, bound to
// engine. Call once per opened store; the resulting closures are safe to
// call concurrently from multiple transactions.
func (s *Schema) Compile(engine *traversal.Engine) map[string]*codegen.CompiledQuery {
	compiled := codegen.Compile(s.resolved, engine)
	out := make(map[string]*codegen.CompiledQuery, len(compiled))
	for _, c := range compiled {
		out[c.Name] = c
	}
	return out
}

// Database bundles an opened store with its engine and compiled queries —
// the handle cmd/helixdb and embedding callers drive.
type Database struct {
	Env     *kv.Environment
	Graph   *graph.Graph
	Engine  *traversal.Engine
	Schema  *Schema
	Queries map[string]*codegen.CompiledQuery
}

// OpenOptions configures Open beyond the raw kv.Options: which declared
// node labels get a BM25 full-text index and the HNSW tuning applied to
// every declared vector label (spec §6's `bm25`/`vector.*` config keys).
type OpenOptions struct {
	KV          kv.Options
	BM25Labels  []string
	VectorTunes map[string]vector.Config // per-label override; DefaultConfig() used when absent
}

// Open loads source, opens the backing store, wires every declared V::
// label's HNSW index and every requested BM25 label's full-text index into
// one traversal.Engine, and compiles every query against it.
func Open(source string, opts OpenOptions) (*Database, []diag.Diagnostic, error) {
	sch, diags, err := Load(source)
	if err != nil {
		return nil, diags, err
	}

	env, err := kv.Open(opts.KV)
	if err != nil {
		return nil, diags, err
	}

	g := graph.New(env, sch.Raw)
	engine := traversal.NewEngine(env, g, sch.Raw)

	for _, label := range sch.Raw.VectorLabels() {
		vs, ok := sch.Raw.Vector(label)
		if !ok {
			continue
		}
		cfg := vector.DefaultConfig()
		if tune, ok := opts.VectorTunes[label]; ok {
			cfg = tune
		}
		engine.RegisterVector(label, vector.New(env, label, vs.Dimensions, cfg))
	}

	for _, label := range opts.BM25Labels {
		engine.RegisterFullText(label, bm25.New(env))
	}

	queries := sch.Compile(engine)

	return &Database{Env: env, Graph: g, Engine: engine, Schema: sch, Queries: queries}, diags, nil
}

// Close releases the database's underlying store.
func (d *Database) Close() error { return d.Env.Close() }
