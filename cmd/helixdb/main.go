// Package main provides the helixdb CLI: a schema inspector and ad-hoc
// query runner over a compiled HQL source tree, in the absence of a
// network-facing server (out of scope, spec §1 Non-goals).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/helixdb/helix-go/pkg/config"
	"github.com/helixdb/helix-go/pkg/hql"
	"github.com/helixdb/helix-go/pkg/hql/codegen"
	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
	"github.com/helixdb/helix-go/pkg/vector"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "helixdb",
		Short: "HelixDB - embedded graph, vector, and full-text database",
		Long: `helixdb compiles HelixQL source into a schema and a set of
queries, and runs them against an on-disk store.

Features:
  • Graph storage with bidirectional adjacency
  • HNSW approximate nearest-neighbor vector search
  • BM25 full-text search
  • HQL: a statically-typed, ahead-of-time-compiled query language`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("helixdb v%s\n", version)
		},
	})

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Load and print a compiled schema",
		RunE:  runSchema,
	}
	schemaCmd.Flags().String("source", "", "path to HQL source file (schema + queries)")
	schemaCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(schemaCmd)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run one compiled query against a data directory",
		RunE:  runQuery,
	}
	queryCmd.Flags().String("source", "", "path to HQL source file (schema + queries)")
	queryCmd.Flags().String("config", "", "path to config.hx.json/.yaml (optional; falls back to defaults)")
	queryCmd.Flags().String("data-dir", "", "on-disk store directory (overrides config's data_dir)")
	queryCmd.Flags().String("name", "", "query name to run")
	queryCmd.Flags().String("params", "{}", "query parameters as a JSON object")
	queryCmd.MarkFlagRequired("source")
	queryCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(queryCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	sch, diags, err := hql.Load(string(raw))
	printDiagnostics(diags)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	for _, label := range sch.Raw.NodeLabels() {
		n, _ := sch.Raw.Node(label)
		fmt.Printf("N::%s (v%d)\n", n.Label, n.Version)
		for _, f := range n.Fields {
			fmt.Printf("  %s: %s\n", f.Name, f.Type)
		}
	}
	for _, label := range sch.Raw.EdgeLabels() {
		e, _ := sch.Raw.Edge(label)
		fmt.Printf("E::%s (v%d) %s -> %s\n", e.Label, e.Version, e.From.Label, e.To.Label)
		for _, f := range e.Fields {
			fmt.Printf("  %s: %s\n", f.Name, f.Type)
		}
	}
	for _, label := range sch.Raw.VectorLabels() {
		v, _ := sch.Raw.Vector(label)
		fmt.Printf("V::%s (v%d) dims=%d\n", v.Label, v.Version, v.Dimensions)
		for _, f := range v.Fields {
			fmt.Printf("  %s: %s\n", f.Name, f.Type)
		}
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	configPath, _ := cmd.Flags().GetString("config")
	dataDirFlag, _ := cmd.Flags().GetString("data-dir")
	name, _ := cmd.Flags().GetString("name")
	paramsJSON, _ := cmd.Flags().GetString("params")

	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	dataDir := cfg.DataDir
	if dataDirFlag != "" {
		dataDir = dataDirFlag
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	sch, loadDiags, err := hql.Load(string(raw))
	printDiagnostics(loadDiags)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	opts := hql.OpenOptions{
		KV: kv.Options{
			Path:      dataDir,
			MapSizeGB: cfg.DBMaxSizeGB,
		},
	}
	if cfg.BM25 {
		opts.BM25Labels = bm25LabelsFrom(string(raw))
	}
	if cfg.Vector.M > 0 {
		vecCfg := vector.Config{
			M:              cfg.Vector.M,
			EfConstruction: cfg.Vector.EfConstruction,
			EfSearch:       cfg.Vector.EfSearch,
		}.Clamp()
		opts.VectorTunes = make(map[string]vector.Config, len(sch.Raw.VectorLabels()))
		for _, label := range sch.Raw.VectorLabels() {
			opts.VectorTunes[label] = vecCfg
		}
	}

	db, diags, err := hql.Open(string(raw), opts)
	printDiagnostics(diags)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	q, ok := db.Queries[name]
	if !ok {
		return fmt.Errorf("no query named %q", name)
	}

	var rawParams map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &rawParams); err != nil {
		return fmt.Errorf("parsing params: %w", err)
	}
	params, err := decodeParams(rawParams)
	if err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}

	result, err := runCompiled(db, q, params)
	if err != nil {
		return fmt.Errorf("running query %q: %w", name, err)
	}

	out, err := json.MarshalIndent(result.ToJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// runCompiled picks a read or write transaction depending on whether the
// query mutates the store, and commits or discards it around the call.
func runCompiled(db *hql.Database, q *codegen.CompiledQuery, params codegen.Params) (value.Value, error) {
	if !q.Mutating {
		txn := db.Env.BeginRead()
		defer txn.Discard()
		return q.Handle(params, txn)
	}

	txn, err := db.Env.BeginWrite()
	if err != nil {
		return value.Value{}, fmt.Errorf("beginning write: %w", err)
	}
	result, err := q.Handle(params, txn)
	if err != nil {
		txn.Discard()
		return value.Value{}, err
	}
	if err := txn.Commit(); err != nil {
		return value.Value{}, fmt.Errorf("committing: %w", err)
	}
	return result, nil
}

// decodeParams converts a JSON object's generic values into value.Value,
// the scalar wire format every compiled query's parameter scope expects.
func decodeParams(raw map[string]any) (codegen.Params, error) {
	out := make(codegen.Params, len(raw))
	for k, v := range raw {
		dv, err := decodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		out[k] = dv
	}
	return out, nil
}

func decodeJSON(v any) (value.Value, error) {
	switch t := v.(type) {
	case nil:
		return value.Value{}, nil
	case bool:
		return value.Bool(t), nil
	case string:
		if id, err := value.ParseID(t); err == nil {
			return value.UUIDValue(id), nil
		}
		return value.Str(t), nil
	case float64:
		return value.F64(t), nil
	case []any:
		items := make([]value.Value, 0, len(t))
		for _, elem := range t {
			dv, err := decodeJSON(elem)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, dv)
		}
		return value.ArrayValue(items), nil
	case map[string]any:
		fields := make(map[string]value.Value, len(t))
		for k, elem := range t {
			dv, err := decodeJSON(elem)
			if err != nil {
				return value.Value{}, err
			}
			fields[k] = dv
		}
		return value.ObjectValue(fields), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported JSON type %T", v)
	}
}

var bm25SourceRe = regexp.MustCompile(`SEARCH_BM25<\s*(\w+)\s*>`)

// bm25LabelsFrom scans source for every label a SEARCH_BM25 source step
// names, so the CLI only registers a full-text index for labels a query
// actually searches rather than every declared node label.
func bm25LabelsFrom(source string) []string {
	seen := map[string]bool{}
	var labels []string
	for _, m := range bm25SourceRe.FindAllStringSubmatch(source, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			labels = append(labels, m[1])
		}
	}
	return labels
}

func printDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d)
	}
}
