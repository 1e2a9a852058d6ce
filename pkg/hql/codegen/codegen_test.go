package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/hql/analyzer"
	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/hql/parser"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/traversal"
	"github.com/helixdb/helix-go/pkg/value"
)

// compileSource parses and analyzes source, failing the test on any
// diagnostic, and compiles the result against a fresh in-memory engine.
func compileSource(t *testing.T, source string) (map[string]*CompiledQuery, *kv.Environment) {
	t.Helper()
	prog, parseDiags := parser.Parse(source)
	require.False(t, diag.HasErrors(parseDiags), "parse errors: %v", parseDiags)

	sch, resolved, semDiags := analyzer.Analyze(prog)
	require.False(t, diag.HasErrors(semDiags), "semantic errors: %v", semDiags)

	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	g := graph.New(env, sch)
	engine := traversal.NewEngine(env, g, sch)

	compiled := Compile(resolved, engine)
	out := make(map[string]*CompiledQuery, len(compiled))
	for _, c := range compiled {
		out[c.Name] = c
	}
	return out, env
}

func runWrite(t *testing.T, env *kv.Environment, q *CompiledQuery, params Params) value.Value {
	t.Helper()
	txn, err := env.BeginWrite()
	require.NoError(t, err)
	result, err := q.Handle(params, txn)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())
	return result
}

func runRead(t *testing.T, env *kv.Environment, q *CompiledQuery, params Params) value.Value {
	t.Helper()
	txn := env.BeginRead()
	defer txn.Discard()
	result, err := q.Handle(params, txn)
	require.NoError(t, err)
	return result
}

const taskSource = `
N::Task::1 {
	title: String,
	priority: I64,
	done: Boolean,
}

QUERY createTask(title: String, priority: I64) =>
	t <- AddN<Task>({title: title, priority: priority, done: false})
	RETURN t

QUERY allByPriority() =>
	tasks <- N_FROM_TYPE<Task>::ORDER_BY_DESC(priority)
	RETURN tasks

QUERY highPriority(min: I64) =>
	tasks <- N_FROM_TYPE<Task>::WHERE(priority > min)
	RETURN tasks

QUERY firstTwo() =>
	tasks <- N_FROM_TYPE<Task>::ORDER_BY_ASC(priority)::RANGE(0, 2)
	RETURN tasks

QUERY markDone(id: ID) =>
	t <- N_FROM_ID<Task>(id)::UPDATE({done: true})
	RETURN t

QUERY summary() =>
	t <- N_FROM_TYPE<Task>::RANGE(0, 1)
	RETURN count: t, first: t
`

func taskID(t *testing.T, v value.Value) value.ID {
	t.Helper()
	obj, ok := v.AsObject()
	require.True(t, ok)
	id, ok := obj["id"].AsID()
	require.True(t, ok)
	return id
}

func TestCompiledQueryMutatingFlags(t *testing.T) {
	queries, _ := compileSource(t, taskSource)
	assert.True(t, queries["createTask"].Mutating)
	assert.False(t, queries["allByPriority"].Mutating)
	assert.True(t, queries["markDone"].Mutating)
}

func TestWhereFiltersOnComparison(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("low"), "priority": value.I64(1)})
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("high"), "priority": value.I64(9)})

	result := runRead(t, env, queries["highPriority"], Params{"min": value.I64(5)})
	arr, ok := result.AsArray()
	require.True(t, ok)
	assert.Len(t, arr, 1)
	obj, ok := arr[0].AsObject()
	require.True(t, ok)
	title, _ := obj["title"].AsString()
	assert.Equal(t, "high", title)
}

func TestOrderByDescSortsHighestFirst(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("a"), "priority": value.I64(1)})
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("b"), "priority": value.I64(5)})
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("c"), "priority": value.I64(3)})

	result := runRead(t, env, queries["allByPriority"], Params{})
	arr, ok := result.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 3)

	var priorities []int64
	for _, v := range arr {
		obj, _ := v.AsObject()
		p, _ := obj["priority"].AsInt64()
		priorities = append(priorities, p)
	}
	assert.Equal(t, []int64{5, 3, 1}, priorities)
}

func TestRangeLimitsResults(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	for i := int64(0); i < 5; i++ {
		runWrite(t, env, queries["createTask"], Params{"title": value.Str("x"), "priority": value.I64(i)})
	}

	result := runRead(t, env, queries["firstTwo"], Params{})
	arr, ok := result.AsArray()
	require.True(t, ok)
	assert.Len(t, arr, 2)
}

func TestUpdateMutatesField(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	created := runWrite(t, env, queries["createTask"], Params{"title": value.Str("x"), "priority": value.I64(1)})
	id := taskID(t, created)

	updated := runWrite(t, env, queries["markDone"], Params{"id": value.UUIDValue(id)})
	obj, ok := updated.AsObject()
	require.True(t, ok)
	done, ok := obj["done"].AsBool()
	require.True(t, ok)
	assert.True(t, done)
}

func TestMultiReturnUsesAliasesAsKeys(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	runWrite(t, env, queries["createTask"], Params{"title": value.Str("x"), "priority": value.I64(1)})

	result := runRead(t, env, queries["summary"], Params{})
	obj, ok := result.AsObject()
	require.True(t, ok)
	assert.Contains(t, obj, "count")
	assert.Contains(t, obj, "first")
}

func TestMissingParameterReturnsError(t *testing.T) {
	queries, env := compileSource(t, taskSource)
	txn, err := env.BeginWrite()
	require.NoError(t, err)
	defer txn.Discard()

	_, err = queries["createTask"].Handle(Params{"title": value.Str("x")}, txn)
	assert.Error(t, err)
}

func TestCompileProducesOneQueryPerDecl(t *testing.T) {
	prog, parseDiags := parser.Parse(taskSource)
	require.False(t, diag.HasErrors(parseDiags))
	sch, resolved, semDiags := analyzer.Analyze(prog)
	require.False(t, diag.HasErrors(semDiags))
	require.NotNil(t, sch)

	env, err := kv.Open(kv.Options{InMemory: true})
	require.NoError(t, err)
	defer env.Close()
	g := graph.New(env, sch)
	engine := traversal.NewEngine(env, g, sch)

	compiled := Compile(resolved, engine)
	assert.Len(t, compiled, 6)
}
