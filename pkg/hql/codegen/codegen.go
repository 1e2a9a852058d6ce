// Package codegen turns an analyzer-validated query into a CompiledQuery:
// a closure over a *traversal.Engine that interprets the query's AST
// against a caller-supplied transaction (spec §4.6.3: handlers take "a
// decoded parameter record and a storage handle" and the engine itself is
// "shared by every compiled query"). Grounded on the shape of
// pkg/traversal/engine.go and steps.go, which already supply every
// primitive operation a step needs; codegen's job is solely to walk the
// AST once per call and dispatch to them, threading the lexical scope the
// analyzer already proved sound.
package codegen

import (
	"fmt"
	"strings"

	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/hql/analyzer"
	"github.com/helixdb/helix-go/pkg/hql/ast"
	"github.com/helixdb/helix-go/pkg/hql/token"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/traversal"
	"github.com/helixdb/helix-go/pkg/value"
)

// Params is the decoded argument record passed into a compiled query.
type Params map[string]value.Value

// CompiledQuery is one query, compiled ahead of time and ready to run
// against any transaction opened on the Engine it was compiled for.
type CompiledQuery struct {
	Name     string
	Mutating bool
	Handle   func(params Params, txn *kv.Txn) (value.Value, error)
}

// Compile lowers every resolved query into a CompiledQuery bound to
// engine. Compile assumes prog and resolved have already passed the
// analyzer with no error diagnostics.
func Compile(resolved []*analyzer.ResolvedQuery, engine *traversal.Engine) []*CompiledQuery {
	out := make([]*CompiledQuery, 0, len(resolved))
	for _, rq := range resolved {
		q := rq.Decl
		mutating := rq.Mutating
		out = append(out, &CompiledQuery{
			Name:     q.Name,
			Mutating: mutating,
			Handle: func(params Params, txn *kv.Txn) (value.Value, error) {
				return run(engine, txn, q, params)
			},
		})
	}
	return out
}

// execCtx is the interpreter's running state for one call: the engine and
// transaction it reads/writes through, and the lexical scope built up from
// parameters and LET/FOR bindings. Every scope value is a pipeline value
// sequence; scalars are represented as a single-element slice holding a
// traversal.ScalarVal, which keeps Identifier resolution uniform whether
// the name is bound to a parameter or to a traversal result.
type execCtx struct {
	engine *traversal.Engine
	txn    *kv.Txn
	scope  map[string][]traversal.Val
}

func run(engine *traversal.Engine, txn *kv.Txn, q *ast.QueryDecl, params Params) (value.Value, error) {
	ctx := &execCtx{engine: engine, txn: txn, scope: map[string][]traversal.Val{}}
	for _, p := range q.Params {
		v, ok := params[p.Name]
		if !ok {
			return value.Value{}, herr.New(herr.KindSemantic, "missing parameter %q", p.Name)
		}
		ctx.scope[p.Name] = []traversal.Val{traversal.ScalarVal(v)}
	}

	for _, stmt := range q.Body {
		if err := execStmt(ctx, stmt); err != nil {
			return value.Value{}, err
		}
	}

	if len(q.Returns) == 1 && q.Returns[0].Alias == "" {
		vals, err := evalExpr(ctx, q.Returns[0].Expr, nil)
		if err != nil {
			return value.Value{}, err
		}
		return toOutput(vals), nil
	}

	out := make(map[string]value.Value, len(q.Returns))
	for _, ret := range q.Returns {
		vals, err := evalExpr(ctx, ret.Expr, nil)
		if err != nil {
			return value.Value{}, err
		}
		name := ret.Alias
		if name == "" {
			name = returnName(ret.Expr)
		}
		out[name] = toOutput(vals)
	}
	return value.ObjectValue(out), nil
}

// returnName derives a default field name for an unaliased RETURN item.
func returnName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.TraversalExpr:
		if e.Source.Kind == ast.SourceVar {
			return e.Source.Var
		}
	}
	return "value"
}

// toOutput converts a pipeline value sequence into a single document
// value: one element collapses to its own converted form, zero or many
// become an array, matching the common case of a RETURN item naming
// either a single bound local or a multi-result traversal.
func toOutput(vals []traversal.Val) value.Value {
	if len(vals) == 1 {
		return valToValue(vals[0])
	}
	arr := make([]value.Value, len(vals))
	for i, v := range vals {
		arr[i] = valToValue(v)
	}
	return value.ArrayValue(arr)
}

func valToValue(v traversal.Val) value.Value {
	switch v.Kind {
	case traversal.KindNode:
		fields := cloneProps(v.Node.Properties)
		fields["id"] = value.UUIDValue(v.Node.ID)
		fields["label"] = value.Str(v.Node.Label)
		return value.ObjectValue(fields)
	case traversal.KindEdge:
		fields := cloneProps(v.Edge.Properties)
		fields["id"] = value.UUIDValue(v.Edge.ID)
		fields["label"] = value.Str(v.Edge.Label)
		fields["from"] = value.UUIDValue(v.Edge.From)
		fields["to"] = value.UUIDValue(v.Edge.To)
		return value.ObjectValue(fields)
	case traversal.KindVector:
		fields := cloneProps(v.Vector.Properties)
		fields["id"] = value.UUIDValue(v.Vector.ID)
		fields["label"] = value.Str(v.Vector.Label)
		fields["distance"] = value.F64(v.Vector.Distance)
		return value.ObjectValue(fields)
	case traversal.KindCount:
		return value.I64(v.Count)
	case traversal.KindScalar:
		return v.Scalar
	case traversal.KindObject:
		return value.ObjectValue(cloneValues(v.Object))
	case traversal.KindPath:
		nodes := make([]value.Value, len(v.Path.Nodes))
		for i, n := range v.Path.Nodes {
			nodes[i] = valToValue(traversal.NodeVal(n))
		}
		edges := make([]value.Value, len(v.Path.Edges))
		for i, e := range v.Path.Edges {
			edges[i] = valToValue(traversal.EdgeVal(e))
		}
		return value.ObjectValue(map[string]value.Value{
			"nodes": value.ArrayValue(nodes),
			"edges": value.ArrayValue(edges),
		})
	default:
		return value.Value{}
	}
}

func cloneProps(m map[string]value.Value) map[string]value.Value { return cloneValues(m) }

func cloneValues(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func execStmt(ctx *execCtx, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		vals, err := evalExpr(ctx, s.Expr, nil)
		if err != nil {
			return err
		}
		ctx.scope[s.Name] = vals
		return nil
	case *ast.ExprStmt:
		_, err := evalExpr(ctx, s.Expr, nil)
		return err
	case *ast.DropStmt:
		vals, err := evalExpr(ctx, s.Expr, nil)
		if err != nil {
			return err
		}
		return ctx.engine.Drop(ctx.txn, traversal.FromVals(vals))
	case *ast.ForStmt:
		vals, err := evalExpr(ctx, s.Iterable, nil)
		if err != nil {
			return err
		}
		for _, v := range vals {
			inner := &execCtx{engine: ctx.engine, txn: ctx.txn, scope: copyScope(ctx.scope)}
			inner.scope[s.Var] = []traversal.Val{v}
			for _, body := range s.Body {
				if err := execStmt(inner, body); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("codegen: unhandled statement %T", stmt)
	}
}

func copyScope(s map[string][]traversal.Val) map[string][]traversal.Val {
	out := make(map[string][]traversal.Val, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// evalExpr evaluates expr within ctx, returning the pipeline value
// sequence it yields. current is the enclosing item when expr is nested
// inside a WHERE/FILTER_REF predicate or an object/closure remapping body
// — it resolves a bare field name that is not a scope-bound identifier.
func evalExpr(ctx *execCtx, expr ast.Expr, current *traversal.Val) ([]traversal.Val, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return []traversal.Val{traversal.ScalarVal(e.Value)}, nil
	case *ast.ArrayLit:
		items := make([]value.Value, 0, len(e.Elems))
		for _, el := range e.Elems {
			v, err := evalScalar(ctx, el, current)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return []traversal.Val{traversal.ScalarVal(value.ArrayValue(items))}, nil
	case *ast.Identifier:
		if vals, ok := ctx.scope[e.Name]; ok {
			return vals, nil
		}
		if current != nil {
			v, ok := current.Field(e.Name)
			if !ok {
				return nil, herr.New(herr.KindSemantic, "unknown field %q", e.Name)
			}
			return []traversal.Val{traversal.ScalarVal(v)}, nil
		}
		return nil, herr.New(herr.KindSemantic, "undeclared name %q", e.Name)
	case *ast.FieldAccess:
		base, err := evalExpr(ctx, e.Base, current)
		if err != nil {
			return nil, err
		}
		if len(base) != 1 {
			return nil, herr.New(herr.KindSemantic, "field access requires a single value, got %d", len(base))
		}
		v, ok := base[0].Field(e.Field)
		if !ok {
			return nil, herr.New(herr.KindSemantic, "unknown field %q", e.Field)
		}
		return []traversal.Val{traversal.ScalarVal(v)}, nil
	case *ast.BinaryExpr:
		return evalBinary(ctx, e, current)
	case *ast.UnaryExpr:
		b, err := evalBool(ctx, e.Operand, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{traversal.ScalarVal(value.Bool(!b))}, nil
	case *ast.ExistsExpr:
		vals, err := evalExpr(ctx, e.Traversal, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{traversal.ScalarVal(value.Bool(len(vals) > 0))}, nil
	case *ast.TraversalExpr:
		return evalTraversal(ctx, e)
	case *ast.ObjectExpr:
		fields := make(map[string]value.Value, len(e.Fields))
		for _, f := range e.Fields {
			v, err := evalScalar(ctx, f.Expr, current)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = v
		}
		return []traversal.Val{traversal.ObjectVal(fields)}, nil
	case *ast.ClosureExpr:
		if current == nil {
			return nil, herr.New(herr.KindSemantic, "closure has no current item")
		}
		inner := &execCtx{engine: ctx.engine, txn: ctx.txn, scope: copyScope(ctx.scope)}
		inner.scope[e.Param] = []traversal.Val{*current}
		for _, stmt := range e.Body {
			if err := execStmt(inner, stmt); err != nil {
				return nil, err
			}
		}
		return evalExpr(inner, e.Result, current)
	case *ast.ExcludeExpr:
		vals, err := evalExpr(ctx, e.Source, current)
		if err != nil {
			return nil, err
		}
		return traversal.Collect(traversal.Exclude(traversal.FromVals(vals), e.Fields))
	case *ast.AddNExpr:
		v, err := execAddN(ctx, e, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{v}, nil
	case *ast.AddEExpr:
		v, err := execAddE(ctx, e, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{v}, nil
	case *ast.AddVExpr:
		v, err := execAddV(ctx, e, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{v}, nil
	default:
		return nil, fmt.Errorf("codegen: unhandled expression %T", expr)
	}
}

// evalScalar evaluates expr to exactly one concrete value.Value.
func evalScalar(ctx *execCtx, expr ast.Expr, current *traversal.Val) (value.Value, error) {
	vals, err := evalExpr(ctx, expr, current)
	if err != nil {
		return value.Value{}, err
	}
	if len(vals) != 1 {
		return value.Value{}, herr.New(herr.KindSemantic, "expected a single value, got %d", len(vals))
	}
	if vals[0].Kind == traversal.KindScalar {
		return vals[0].Scalar, nil
	}
	if v, ok := vals[0].Field("id"); ok && vals[0].Kind != traversal.KindScalar {
		return v, nil
	}
	return value.Value{}, herr.New(herr.KindSemantic, "expected a scalar value, got %s", vals[0].Kind)
}

func evalBool(ctx *execCtx, expr ast.Expr, current *traversal.Val) (bool, error) {
	v, err := evalScalar(ctx, expr, current)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, herr.New(herr.KindSemantic, "expected a boolean, got %s", v.Kind())
	}
	return b, nil
}

func evalBinary(ctx *execCtx, e *ast.BinaryExpr, current *traversal.Val) ([]traversal.Val, error) {
	switch e.Op {
	case token.AND:
		l, err := evalBool(ctx, e.Left, current)
		if err != nil {
			return nil, err
		}
		if !l {
			return []traversal.Val{traversal.ScalarVal(value.Bool(false))}, nil
		}
		r, err := evalBool(ctx, e.Right, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{traversal.ScalarVal(value.Bool(r))}, nil
	case token.OR:
		l, err := evalBool(ctx, e.Left, current)
		if err != nil {
			return nil, err
		}
		if l {
			return []traversal.Val{traversal.ScalarVal(value.Bool(true))}, nil
		}
		r, err := evalBool(ctx, e.Right, current)
		if err != nil {
			return nil, err
		}
		return []traversal.Val{traversal.ScalarVal(value.Bool(r))}, nil
	}

	left, err := evalScalar(ctx, e.Left, current)
	if err != nil {
		return nil, err
	}
	right, err := evalScalar(ctx, e.Right, current)
	if err != nil {
		return nil, err
	}

	var result bool
	switch e.Op {
	case token.EQ:
		result = left.Equal(right)
	case token.NEQ:
		result = !left.Equal(right)
	case token.LANGLE:
		result = left.Less(right)
	case token.LTE:
		result = left.Less(right) || left.Equal(right)
	case token.RANGLE:
		result = right.Less(left)
	case token.GTE:
		result = right.Less(left) || left.Equal(right)
	default:
		return nil, fmt.Errorf("codegen: unhandled operator %v", e.Op)
	}
	return []traversal.Val{traversal.ScalarVal(value.Bool(result))}, nil
}

// evalTraversal runs a TraversalExpr's source step through its transition
// chain and collects the result.
func evalTraversal(ctx *execCtx, t *ast.TraversalExpr) ([]traversal.Val, error) {
	it, err := evalSource(ctx, t.Source)
	if err != nil {
		return nil, err
	}
	for _, step := range t.Steps {
		it, err = applyStep(ctx, it, step)
		if err != nil {
			return nil, err
		}
	}
	return traversal.Collect(it)
}

func evalSource(ctx *execCtx, s *ast.SourceStep) (traversal.Iterator, error) {
	switch s.Kind {
	case ast.SourceNFromType:
		return ctx.engine.NFromType(ctx.txn, s.Label)
	case ast.SourceNFromID:
		id, err := evalID(ctx, s.Args[0], nil)
		if err != nil {
			return nil, err
		}
		return ctx.engine.NFromID(ctx.txn, id)
	case ast.SourceNFromIndex:
		field, err := evalFieldName(ctx, s.Args[0])
		if err != nil {
			return nil, err
		}
		key, err := evalScalar(ctx, s.Args[1], nil)
		if err != nil {
			return nil, err
		}
		return ctx.engine.NFromIndex(ctx.txn, field, key)
	case ast.SourceEFromType:
		return ctx.engine.EFromType(ctx.txn, s.Label)
	case ast.SourceEFromID:
		id, err := evalID(ctx, s.Args[0], nil)
		if err != nil {
			return nil, err
		}
		return ctx.engine.EFromID(ctx.txn, id)
	case ast.SourceSearchV:
		vec, err := evalFloatSlice(ctx, s.Args[0])
		if err != nil {
			return nil, err
		}
		k, err := evalInt(ctx, s.Args[1])
		if err != nil {
			return nil, err
		}
		return ctx.engine.SearchV(ctx.txn, s.Label, vec, k)
	case ast.SourceBruteForceSearchV:
		vec, err := evalFloatSlice(ctx, s.Args[0])
		if err != nil {
			return nil, err
		}
		k, err := evalInt(ctx, s.Args[1])
		if err != nil {
			return nil, err
		}
		return ctx.engine.BruteForceSearchV(ctx.txn, s.Label, vec, k)
	case ast.SourceSearchBM25:
		q, err := evalString(ctx, s.Args[0])
		if err != nil {
			return nil, err
		}
		k, err := evalInt(ctx, s.Args[1])
		if err != nil {
			return nil, err
		}
		return ctx.engine.SearchBM25(ctx.txn, s.Label, q, k)
	case ast.SourceVar:
		vals, ok := ctx.scope[s.Var]
		if !ok {
			return nil, herr.New(herr.KindSemantic, "undeclared name %q", s.Var)
		}
		return traversal.FromVals(vals), nil
	default:
		return nil, fmt.Errorf("codegen: unhandled source kind %v", s.Kind)
	}
}

func applyStep(ctx *execCtx, it traversal.Iterator, step ast.StepCall) (traversal.Iterator, error) {
	switch step.Name {
	case "OUT":
		return ctx.engine.Out(ctx.txn, it, step.Label), nil
	case "IN":
		return ctx.engine.In(ctx.txn, it, step.Label), nil
	case "OUT_E":
		return ctx.engine.OutE(ctx.txn, it, step.Label), nil
	case "IN_E":
		return ctx.engine.InE(ctx.txn, it, step.Label), nil
	case "FROM_N":
		return ctx.engine.FromN(ctx.txn, it), nil
	case "TO_N":
		return ctx.engine.ToN(ctx.txn, it), nil
	case "FROM_V":
		return ctx.engine.FromV(ctx.txn, it, step.Label), nil
	case "TO_V":
		return ctx.engine.ToV(ctx.txn, it, step.Label), nil
	case "SHORTEST_PATH":
		to, err := evalID(ctx, step.Args[0], nil)
		if err != nil {
			return nil, err
		}
		return ctx.engine.ShortestPath(ctx.txn, it, step.Label, to), nil
	case "WHERE", "FILTER_REF":
		pred := step.Args[0]
		return traversal.Where(ctx.txn, it, func(_ *kv.Txn, v traversal.Val) (bool, error) {
			return evalBool(ctx, pred, &v)
		}), nil
	case "COUNT":
		return traversal.Count(it)
	case "RANGE":
		s, err := evalInt(ctx, step.Args[0])
		if err != nil {
			return nil, err
		}
		end, err := evalInt(ctx, step.Args[1])
		if err != nil {
			return nil, err
		}
		return traversal.Range(it, s, end)
	case "ORDER_BY_ASC", "ORDER_BY_DESC":
		field, err := evalFieldName(ctx, step.Args[0])
		if err != nil {
			return nil, err
		}
		return traversal.OrderBy(it, field, step.Name == "ORDER_BY_DESC")
	case "DEDUP":
		return traversal.Dedup(it)
	case "UPDATE":
		obj, ok := step.Args[0].(*ast.ObjectExpr)
		if !ok {
			return nil, herr.New(herr.KindSemantic, "update requires an object argument")
		}
		fields := make(map[string]value.Value, len(obj.Fields))
		for _, f := range obj.Fields {
			v, err := evalScalar(ctx, f.Expr, nil)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = v
		}
		return ctx.engine.Update(ctx.txn, it, fields)
	case "DROP":
		vals, err := traversal.Collect(it)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if v.Kind == traversal.KindNode && v.Node != nil {
				if err := dropFullText(ctx, v.Node.Label, v.Node); err != nil {
					return nil, err
				}
			}
		}
		if err := ctx.engine.Drop(ctx.txn, traversal.FromVals(vals)); err != nil {
			return nil, err
		}
		return traversal.FromVals(nil), nil
	case "OBJECT":
		vals, err := traversal.Collect(it)
		if err != nil {
			return nil, err
		}
		if len(step.Args) != 1 {
			return nil, herr.New(herr.KindSemantic, "object requires exactly one argument")
		}
		out := make([]traversal.Val, 0, len(vals))
		for _, v := range vals {
			mapped, err := evalExpr(ctx, step.Args[0], &v)
			if err != nil {
				return nil, err
			}
			out = append(out, mapped...)
		}
		return traversal.FromVals(out), nil
	case "CLOSURE":
		vals, err := traversal.Collect(it)
		if err != nil {
			return nil, err
		}
		if len(step.Args) != 1 {
			return nil, herr.New(herr.KindSemantic, "closure requires exactly one argument")
		}
		out := make([]traversal.Val, 0, len(vals))
		for _, v := range vals {
			mapped, err := evalExpr(ctx, step.Args[0], &v)
			if err != nil {
				return nil, err
			}
			out = append(out, mapped...)
		}
		return traversal.FromVals(out), nil
	case "EXCLUDE":
		return traversal.Exclude(it, fieldArgNames(step.Args)), nil
	default:
		return nil, fmt.Errorf("codegen: unhandled step %q", step.Name)
	}
}

func fieldArgNames(args []ast.Expr) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if id, ok := a.(*ast.Identifier); ok {
			out = append(out, id.Name)
		}
	}
	return out
}

func evalFieldName(ctx *execCtx, expr ast.Expr) (string, error) {
	if id, ok := expr.(*ast.Identifier); ok {
		return id.Name, nil
	}
	v, err := evalScalar(ctx, expr, nil)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", herr.New(herr.KindSemantic, "expected a field name")
	}
	return s, nil
}

func evalID(ctx *execCtx, expr ast.Expr, current *traversal.Val) (value.ID, error) {
	v, err := evalScalar(ctx, expr, current)
	if err != nil {
		return value.ID{}, err
	}
	id, ok := v.AsID()
	if !ok {
		return value.ID{}, herr.New(herr.KindSemantic, "expected an id, got %s", v.Kind())
	}
	return id, nil
}

func evalInt(ctx *execCtx, expr ast.Expr) (int, error) {
	v, err := evalScalar(ctx, expr, nil)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInt64()
	if !ok {
		return 0, herr.New(herr.KindSemantic, "expected an integer, got %s", v.Kind())
	}
	return int(i), nil
}

func evalString(ctx *execCtx, expr ast.Expr) (string, error) {
	v, err := evalScalar(ctx, expr, nil)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", herr.New(herr.KindSemantic, "expected a string, got %s", v.Kind())
	}
	return s, nil
}

func evalFloatSlice(ctx *execCtx, expr ast.Expr) ([]float64, error) {
	v, err := evalScalar(ctx, expr, nil)
	if err != nil {
		return nil, err
	}
	items, ok := v.AsArray()
	if !ok {
		return nil, herr.New(herr.KindSemantic, "expected a vector (array), got %s", v.Kind())
	}
	out := make([]float64, len(items))
	for i, it := range items {
		f, ok := it.AsFloat64()
		if !ok {
			return nil, herr.New(herr.KindSemantic, "expected a numeric vector component")
		}
		out[i] = f
	}
	return out, nil
}

func evalPropMap(ctx *execCtx, props []ast.PropInit, current *traversal.Val) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(props))
	for _, p := range props {
		v, err := evalScalar(ctx, p.Expr, current)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

func execAddN(ctx *execCtx, e *ast.AddNExpr, current *traversal.Val) (traversal.Val, error) {
	props, err := evalPropMap(ctx, e.Props, current)
	if err != nil {
		return traversal.Val{}, err
	}
	id, err := ctx.engine.Graph.AddNode(ctx.engine.Env, ctx.txn, e.Label, props, nil)
	if err != nil {
		return traversal.Val{}, err
	}
	n, err := ctx.engine.Graph.GetNode(ctx.txn, id)
	if err != nil {
		return traversal.Val{}, err
	}
	if err := syncFullText(ctx, e.Label, n); err != nil {
		return traversal.Val{}, err
	}
	return traversal.NodeVal(n), nil
}

// fullTextOf concatenates a node's string-typed fields into the document
// body indexed by BM25 (spec §4.4).
func fullTextOf(n *graph.Node) string {
	var sb strings.Builder
	for _, v := range n.Properties {
		if s, ok := v.AsString(); ok {
			sb.WriteString(s)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// syncFullText keeps a label's BM25 index current when one is registered,
// indexing the concatenation of its string-typed fields (spec §4.4: "every
// mutation through the compiled query path keeps indices consistent"). A
// label with no registered index is not an error; the error returned here
// is an actual InsertDoc failure that must propagate to the query boundary.
func syncFullText(ctx *execCtx, label string, n *graph.Node) error {
	idx, err := ctx.engine.FullTextIndex(label)
	if err != nil {
		return nil
	}
	return idx.InsertDoc(ctx.txn, n.ID, fullTextOf(n))
}

// dropFullText removes a dropped node's document from its label's BM25
// index, if one is registered, keeping the index consistent with the set
// of nodes still present in the graph (spec §4.4).
func dropFullText(ctx *execCtx, label string, n *graph.Node) error {
	idx, err := ctx.engine.FullTextIndex(label)
	if err != nil {
		return nil
	}
	return idx.DeleteDoc(ctx.txn, n.ID, fullTextOf(n))
}

func execAddE(ctx *execCtx, e *ast.AddEExpr, current *traversal.Val) (traversal.Val, error) {
	from, err := evalID(ctx, e.From, current)
	if err != nil {
		return traversal.Val{}, err
	}
	to, err := evalID(ctx, e.To, current)
	if err != nil {
		return traversal.Val{}, err
	}
	props, err := evalPropMap(ctx, e.Props, current)
	if err != nil {
		return traversal.Val{}, err
	}
	id, err := ctx.engine.Graph.AddEdge(ctx.engine.Env, ctx.txn, e.Label, from, to, props, nil, graph.BulkOptions{})
	if err != nil {
		return traversal.Val{}, err
	}
	ed, err := ctx.engine.Graph.GetEdge(ctx.txn, id)
	if err != nil {
		return traversal.Val{}, err
	}
	return traversal.EdgeVal(ed), nil
}

func execAddV(ctx *execCtx, e *ast.AddVExpr, current *traversal.Val) (traversal.Val, error) {
	vec, err := evalFloatSlice(ctx, e.Vector)
	if err != nil {
		return traversal.Val{}, err
	}
	props, err := evalPropMap(ctx, e.Props, current)
	if err != nil {
		return traversal.Val{}, err
	}
	idx, err := ctx.engine.VectorIndex(e.Label)
	if err != nil {
		return traversal.Val{}, err
	}
	id := value.NewID()
	if err := idx.Insert(ctx.txn, id, vec, props); err != nil {
		return traversal.Val{}, err
	}
	return traversal.VectorVal(traversal.VectorRef{Label: e.Label, ID: id, Properties: props}), nil
}
