// Package analyzer implements HQL's semantic analysis pass (spec §4.6.2):
// resolving every label reference to a schema declaration, validating
// traversal step legality against the §4.5 kind table, checking
// add_*/where/comparison type usage against declared schema fields, and
// tracking whether each query mutates so the code generator requests the
// correct transaction kind. Grounded on the teacher's constraint-validation
// style in pkg/storage/schema.go (one pass building a global label/field
// context, then per-declaration checks against it), generalized from
// Neo4j's implicit property-graph constraints to HQL's explicit versioned
// schema and its statically kind-checked traversal algebra.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/helixdb/helix-go/pkg/hql/ast"
	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/hql/token"
	"github.com/helixdb/helix-go/pkg/schema"
	"github.com/helixdb/helix-go/pkg/traversal"
	"github.com/helixdb/helix-go/pkg/value"
)

// ResolvedQuery is the analyzer's output for one QueryDecl: the validated
// AST plus the facts the code generator needs without re-deriving them.
type ResolvedQuery struct {
	Decl     *ast.QueryDecl
	Mutating bool // any AddN/AddE/AddV/update/drop in the body (spec §4.6.3)
}

// elemType threads the statically-known element kind and (when resolvable)
// concrete label through a traversal's step chain, so WHERE/ORDER_BY/UPDATE
// can validate field references against the right schema.
type elemType struct {
	kind  traversal.Kind
	label string // "" when not statically known (e.g. after a heterogeneous NFromType with no fixed label, which doesn't happen here since every source step names one label)
}

// binding is one entry in a query's lexical scope: either a declared
// parameter (with its HQL type name) or a local bound to a pipeline value
// by LET/`<-`/FOR (with its elemType).
type binding struct {
	isParam   bool
	paramType string
	elem      elemType
}

// Analyze runs the full semantic pass over prog, returning the schema
// built from its N::/E::/V:: and MIGRATION declarations, one ResolvedQuery
// per QUERY declaration, and every diagnostic collected. Compilation
// should proceed to codegen only when diag.HasErrors returns false.
func Analyze(prog *ast.Program) (*schema.Schema, []*ResolvedQuery, []diag.Diagnostic) {
	a := &analyzer{sch: schema.New()}
	a.buildSchema(prog)
	a.buildMigrations(prog)
	if err := a.sch.Validate(); err != nil {
		a.diags = append(a.diags, diag.Errorf(token.Span{}, "schema validation failed: %v", err))
	}

	var resolved []*ResolvedQuery
	seen := map[string]bool{}
	for _, q := range prog.Queries {
		if seen[q.Name] {
			a.errorf(q.Span, "duplicate query name %q", q.Name)
		}
		seen[q.Name] = true
		resolved = append(resolved, a.analyzeQuery(q))
	}
	return a.sch, resolved, a.diags
}

type analyzer struct {
	sch   *schema.Schema
	diags []diag.Diagnostic
}

func (a *analyzer) errorf(span token.Span, format string, args ...any) {
	a.diags = append(a.diags, diag.Errorf(span, format, args...))
}

func (a *analyzer) errorFix(span token.Span, fix, format string, args ...any) {
	a.diags = append(a.diags, diag.ErrorWithFix(span, fix, format, args...))
}

func (a *analyzer) warnf(span token.Span, format string, args ...any) {
	a.diags = append(a.diags, diag.Warnf(span, format, args...))
}

// typeKind maps an HQL scalar type name to value.Kind; ok is false for an
// unrecognized name.
func typeKind(name string) (value.Kind, bool) {
	switch name {
	case "I8":
		return value.KindI8, true
	case "I16":
		return value.KindI16, true
	case "I32":
		return value.KindI32, true
	case "I64", "ID":
		return value.KindI64, true
	case "I128":
		return value.KindI128, true
	case "U8":
		return value.KindU8, true
	case "U16":
		return value.KindU16, true
	case "U32":
		return value.KindU32, true
	case "U64":
		return value.KindU64, true
	case "U128":
		return value.KindU128, true
	case "F32":
		return value.KindF32, true
	case "F64":
		return value.KindF64, true
	case "String":
		return value.KindString, true
	case "Boolean", "Bool":
		return value.KindBoolean, true
	case "Date":
		return value.KindDate, true
	case "Uuid", "UUID":
		return value.KindUUID, true
	default:
		return 0, false
	}
}

func (a *analyzer) buildSchema(prog *ast.Program) {
	for _, n := range prog.Nodes {
		fields, ok := a.resolveFields(n.Fields)
		if !ok {
			continue
		}
		a.sch.AddNode(&schema.NodeSchema{Label: n.Label, Version: n.Version, Fields: fields})
	}
	for _, v := range prog.Vectors {
		fields, ok := a.resolveFields(v.Fields)
		if !ok {
			continue
		}
		a.sch.AddVector(&schema.VectorSchema{Label: v.Label, Version: v.Version, Dimensions: v.Dimensions, Fields: fields})
	}
	for _, e := range prog.Edges {
		fields, ok := a.resolveFields(e.Fields)
		if !ok {
			continue
		}
		from := a.resolveEndpoint(e.From)
		to := a.resolveEndpoint(e.To)
		a.sch.AddEdge(&schema.EdgeSchema{Label: e.Label, Version: e.Version, Fields: fields, From: from, To: to})
	}
}

// resolveEndpoint determines whether a declared edge endpoint is a node or
// vector label by checking which bundle it was declared in; unresolved (a
// forward reference to a not-yet-declared type within the same source
// unit) defaults to EndpointNode and is caught by schema.Validate().
func (a *analyzer) resolveEndpoint(ep ast.EndpointDecl) schema.EndpointRef {
	if _, ok := a.sch.Vector(ep.Label); ok {
		return schema.EndpointRef{Kind: schema.EndpointVector, Label: ep.Label}
	}
	return schema.EndpointRef{Kind: schema.EndpointNode, Label: ep.Label}
}

func (a *analyzer) resolveFields(decls []ast.FieldDecl) ([]schema.Field, bool) {
	out := make([]schema.Field, 0, len(decls))
	ok := true
	seen := map[string]bool{}
	for _, d := range decls {
		if seen[d.Name] {
			a.errorf(d.Span, "duplicate field %q", d.Name)
			ok = false
			continue
		}
		seen[d.Name] = true
		k, known := typeKind(d.Type)
		if !known {
			a.errorFix(d.Span, fmt.Sprintf("use a declared Value type for %q", d.Name), "unknown type %q for field %q", d.Type, d.Name)
			ok = false
			continue
		}
		f := schema.Field{Name: d.Name, Type: k, Prefix: schema.Prefix(d.Prefix)}
		if d.Default != nil {
			lit, isLit := d.Default.(*ast.Literal)
			if !isLit {
				a.errorf(d.Default.SpanOf(), "field default must be a literal")
				ok = false
				continue
			}
			v := lit.Value
			f.Default = &v
		}
		out = append(out, f)
	}
	return out, ok
}

func (a *analyzer) buildMigrations(prog *ast.Program) {
	for _, m := range prog.Migrations {
		mig := schema.Migration{From: m.From, To: m.To}
		for _, item := range m.Items {
			im := schema.ItemMigration{SourceItem: item.SourceItem, TargetItem: item.TargetItem}
			for _, r := range item.Properties {
				pr := schema.PropertyRemap{SourceField: r.Source, TargetField: r.Target}
				if r.Default != nil {
					lit, ok := r.Default.(*ast.Literal)
					if !ok {
						a.errorf(r.Span, "migration default must be a literal")
						continue
					}
					v := lit.Value
					pr.Default = &v
				}
				if r.Cast != "" {
					c, ok := castKind(r.Cast)
					if !ok {
						a.errorf(r.Span, "unknown cast target %q", r.Cast)
						continue
					}
					pr.Cast = c
				}
				im.Properties = append(im.Properties, pr)
			}
			mig.Items = append(mig.Items, im)
		}
		a.sch.AddMigration(mig)
	}
}

func castKind(name string) (schema.Cast, bool) {
	switch name {
	case "String":
		return schema.CastToString, true
	case "I64", "ID":
		return schema.CastToI64, true
	case "F64":
		return schema.CastToF64, true
	case "Boolean", "Bool":
		return schema.CastToBool, true
	default:
		return 0, false
	}
}

// scope is a query's per-body lexical environment: parameters plus locals
// bound by LET/`<-`/FOR, consulted left-to-right as statements execute
// (spec §4.6.2: "a name in a query body must be a declared parameter or
// previously assigned local; undeclared names are reported with span").
type scope struct {
	vars map[string]binding
}

func newScope() *scope { return &scope{vars: map[string]binding{}} }

func (s *scope) define(name string, b binding) { s.vars[name] = b }

func (s *scope) lookup(name string) (binding, bool) {
	b, ok := s.vars[name]
	return b, ok
}

func (a *analyzer) analyzeQuery(q *ast.QueryDecl) *ResolvedQuery {
	sc := newScope()
	for _, p := range q.Params {
		if _, known := typeKind(p.Type); !known && p.Type != "Vector" {
			a.errorf(p.Span, "unknown parameter type %q for %q", p.Type, p.Name)
		}
		sc.define(p.Name, binding{isParam: true, paramType: p.Type})
	}

	rq := &ResolvedQuery{Decl: q}
	for _, stmt := range q.Body {
		a.analyzeStatement(stmt, sc, rq)
	}
	for _, ret := range q.Returns {
		a.analyzeExpr(ret.Expr, sc, elemType{})
	}
	return rq
}

func (a *analyzer) analyzeStatement(stmt ast.Statement, sc *scope, rq *ResolvedQuery) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		et := a.analyzeExpr(s.Expr, sc, elemType{})
		sc.define(s.Name, binding{elem: et})
		if containsMutation(s.Expr) {
			rq.Mutating = true
		}
	case *ast.ExprStmt:
		a.analyzeExpr(s.Expr, sc, elemType{})
		if containsMutation(s.Expr) {
			rq.Mutating = true
		}
	case *ast.DropStmt:
		a.analyzeExpr(s.Expr, sc, elemType{})
		rq.Mutating = true
	case *ast.ForStmt:
		et := a.analyzeExpr(s.Iterable, sc, elemType{})
		inner := newScope()
		for k, v := range sc.vars {
			inner.vars[k] = v
		}
		inner.define(s.Var, binding{elem: et})
		for _, body := range s.Body {
			a.analyzeStatement(body, inner, rq)
		}
	}
}

// containsMutation reports whether evaluating expr performs a write
// (AddN/AddE/AddV, or a traversal whose step chain includes UPDATE/DROP).
func containsMutation(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.AddNExpr, *ast.AddEExpr, *ast.AddVExpr:
		return true
	case *ast.TraversalExpr:
		for _, step := range e.Steps {
			if step.Name == "UPDATE" || step.Name == "DROP" {
				return true
			}
		}
		return false
	case *ast.BinaryExpr:
		return containsMutation(e.Left) || containsMutation(e.Right)
	case *ast.UnaryExpr:
		return containsMutation(e.Operand)
	default:
		return false
	}
}

// analyzeExpr validates expr within scope sc and returns its resulting
// elemType. current is the enclosing pipeline item's type, used to resolve
// bare identifiers that name a field on the current item rather than a
// lexical binding (legal inside WHERE/FILTER_REF predicates, ORDER_BY
// field arguments, and object/closure remapping bodies).
func (a *analyzer) analyzeExpr(expr ast.Expr, sc *scope, current elemType) elemType {
	switch e := expr.(type) {
	case *ast.Literal:
		return elemType{kind: traversal.KindScalar}
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			a.analyzeExpr(el, sc, current)
		}
		return elemType{kind: traversal.KindScalar}
	case *ast.Identifier:
		if b, ok := sc.lookup(e.Name); ok {
			if b.isParam {
				return elemType{kind: traversal.KindScalar}
			}
			return b.elem
		}
		if current.kind != 0 || current.label != "" {
			if !a.fieldExists(current, e.Name) {
				a.errorf(e.Span, "undeclared name %q: not a parameter, local, or field on the current %s", e.Name, current.kind)
			}
			return elemType{kind: traversal.KindScalar}
		}
		a.errorf(e.Span, "undeclared name %q: not a parameter or previously assigned local", e.Name)
		return elemType{}
	case *ast.FieldAccess:
		base := a.analyzeExpr(e.Base, sc, current)
		if !a.fieldExists(base, e.Field) {
			a.errorf(e.Span, "unknown field %q on %s", e.Field, base.kind)
		}
		return elemType{kind: traversal.KindScalar}
	case *ast.BinaryExpr:
		left := a.analyzeExpr(e.Left, sc, current)
		right := a.analyzeExpr(e.Right, sc, current)
		if (e.Op == token.AND || e.Op == token.OR) {
			return elemType{kind: traversal.KindScalar}
		}
		if left.kind != right.kind && left.kind != 0 && right.kind != 0 {
			a.warnf(e.Span, "comparison between %s and %s may never be true", left.kind, right.kind)
		}
		return elemType{kind: traversal.KindScalar}
	case *ast.UnaryExpr:
		a.analyzeExpr(e.Operand, sc, current)
		return elemType{kind: traversal.KindScalar}
	case *ast.ExistsExpr:
		a.analyzeExpr(e.Traversal, sc, current)
		return elemType{kind: traversal.KindScalar}
	case *ast.TraversalExpr:
		return a.analyzeTraversal(e, sc, current)
	case *ast.ObjectExpr:
		for _, f := range e.Fields {
			a.analyzeExpr(f.Expr, sc, current)
		}
		return elemType{kind: traversal.KindObject}
	case *ast.ClosureExpr:
		inner := newScope()
		for k, v := range sc.vars {
			inner.vars[k] = v
		}
		inner.define(e.Param, binding{elem: current})
		a.analyzeExpr(e.Result, inner, current)
		return elemType{kind: traversal.KindObject}
	case *ast.ExcludeExpr:
		base := a.analyzeExpr(e.Source, sc, current)
		return base
	case *ast.AddNExpr:
		a.analyzeAddN(e, sc, current)
		return elemType{kind: traversal.KindNode, label: e.Label}
	case *ast.AddEExpr:
		a.analyzeAddE(e, sc, current)
		return elemType{kind: traversal.KindEdge, label: e.Label}
	case *ast.AddVExpr:
		a.analyzeAddV(e, sc, current)
		return elemType{kind: traversal.KindVector, label: e.Label}
	default:
		return elemType{}
	}
}

// fieldExists reports whether name is a declared field (or the synthetic
// "id") on et's label, when et's schema declaration is known. An unknown
// label (et.label == "") is treated permissively — the label was already
// flagged elsewhere — to avoid cascading diagnostics.
func (a *analyzer) fieldExists(et elemType, name string) bool {
	if name == "id" {
		return true
	}
	if et.label == "" {
		return true
	}
	switch et.kind {
	case traversal.KindNode:
		n, ok := a.sch.Node(et.label)
		if !ok {
			return true
		}
		_, ok = n.FieldByName(name)
		return ok
	case traversal.KindEdge:
		e, ok := a.sch.Edge(et.label)
		if !ok {
			return true
		}
		_, ok = e.FieldByName(name)
		return ok
	case traversal.KindVector:
		v, ok := a.sch.Vector(et.label)
		if !ok {
			return true
		}
		_, ok = v.FieldByName(name)
		return ok
	default:
		return true
	}
}

func (a *analyzer) analyzeAddN(e *ast.AddNExpr, sc *scope, current elemType) {
	n, ok := a.sch.Node(e.Label)
	if !ok {
		a.errorFix(e.Span, fmt.Sprintf("declare N::%s", e.Label), "unknown node type %q", e.Label)
		return
	}
	a.checkProps(e.Span, n.Fields, e.Props, sc, current)
}

func (a *analyzer) analyzeAddE(e *ast.AddEExpr, sc *scope, current elemType) {
	ed, ok := a.sch.Edge(e.Label)
	if !ok {
		a.errorFix(e.Span, fmt.Sprintf("declare E::%s", e.Label), "unknown edge type %q", e.Label)
		return
	}
	if e.From == nil {
		a.errorf(e.Span, "AddE<%s> is missing a from: endpoint", e.Label)
	} else {
		a.analyzeExpr(e.From, sc, current)
	}
	if e.To == nil {
		a.errorf(e.Span, "AddE<%s> is missing a to: endpoint", e.Label)
	} else {
		a.analyzeExpr(e.To, sc, current)
	}
	a.checkProps(e.Span, ed.Fields, e.Props, sc, current)
}

func (a *analyzer) analyzeAddV(e *ast.AddVExpr, sc *scope, current elemType) {
	v, ok := a.sch.Vector(e.Label)
	if !ok {
		a.errorFix(e.Span, fmt.Sprintf("declare V::%s", e.Label), "unknown vector type %q", e.Label)
		return
	}
	if e.Vector == nil {
		a.errorf(e.Span, "AddV<%s> is missing its vector data argument", e.Label)
	} else {
		a.analyzeExpr(e.Vector, sc, current)
	}
	a.checkProps(e.Span, v.Fields, e.Props, sc, current)
}

func (a *analyzer) checkProps(span token.Span, fields []schema.Field, props []ast.PropInit, sc *scope, current elemType) {
	byName := map[string]schema.Field{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	given := map[string]bool{}
	for _, p := range props {
		f, ok := byName[p.Name]
		if !ok {
			a.errorf(span, "unknown field %q", p.Name)
			continue
		}
		given[p.Name] = true
		et := a.analyzeExpr(p.Expr, sc, current)
		_ = et
		if lit, ok := p.Expr.(*ast.Literal); ok && lit.Value.Kind() != f.Type {
			a.errorf(span, "field %q declared %s, got %s", p.Name, f.Type, lit.Value.Kind())
		}
	}
	for _, f := range fields {
		if given[f.Name] || f.IsOptional() || f.Default != nil {
			continue
		}
		a.errorf(span, "missing required field %q with no default", f.Name)
	}
}

// analyzeTraversal walks a source step then each transition step, checking
// kind legality at every transition via traversal.CheckTransition (the
// §4.5 table) and resolving the concrete label threaded through the chain
// so downstream field checks stay precise.
func (a *analyzer) analyzeTraversal(t *ast.TraversalExpr, sc *scope, current elemType) elemType {
	et := a.analyzeSource(t.Source, sc, current)

	for i, step := range t.Steps {
		et = a.analyzeStep(step, et, i, t.Steps, sc, current)
	}
	return et
}

func (a *analyzer) analyzeSource(src *ast.SourceStep, sc *scope, current elemType) elemType {
	switch src.Kind {
	case ast.SourceNFromType:
		if _, ok := a.sch.Node(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare N::%s", src.Label), "unknown node type %q", src.Label)
		}
		return elemType{kind: traversal.KindNode, label: src.Label}
	case ast.SourceNFromID:
		if _, ok := a.sch.Node(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare N::%s", src.Label), "unknown node type %q", src.Label)
		}
		if len(src.Args) != 1 {
			a.errorf(src.Span, "N_FROM_ID<%s> takes exactly one id argument", src.Label)
		}
		for _, arg := range src.Args {
			a.analyzeExpr(arg, sc, current)
		}
		return elemType{kind: traversal.KindNode, label: src.Label}
	case ast.SourceNFromIndex:
		if _, ok := a.sch.Node(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare N::%s", src.Label), "unknown node type %q", src.Label)
		}
		if len(src.Args) != 2 {
			a.errorf(src.Span, "N_FROM_INDEX<%s> takes (field, key) arguments", src.Label)
		}
		for _, arg := range src.Args {
			a.analyzeExpr(arg, sc, current)
		}
		return elemType{kind: traversal.KindNode, label: src.Label}
	case ast.SourceEFromType:
		if _, ok := a.sch.Edge(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare E::%s", src.Label), "unknown edge type %q", src.Label)
		}
		return elemType{kind: traversal.KindEdge, label: src.Label}
	case ast.SourceEFromID:
		if _, ok := a.sch.Edge(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare E::%s", src.Label), "unknown edge type %q", src.Label)
		}
		if len(src.Args) != 1 {
			a.errorf(src.Span, "E_FROM_ID<%s> takes exactly one id argument", src.Label)
		}
		for _, arg := range src.Args {
			a.analyzeExpr(arg, sc, current)
		}
		return elemType{kind: traversal.KindEdge, label: src.Label}
	case ast.SourceSearchV, ast.SourceBruteForceSearchV:
		if _, ok := a.sch.Vector(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare V::%s", src.Label), "unknown vector type %q", src.Label)
		}
		if len(src.Args) < 2 {
			a.errorf(src.Span, "%s requires (query, k) arguments", sourceStepName(src.Kind))
		}
		for _, arg := range src.Args {
			a.analyzeExpr(arg, sc, current)
		}
		return elemType{kind: traversal.KindVector, label: src.Label}
	case ast.SourceSearchBM25:
		if _, ok := a.sch.Node(src.Label); !ok {
			a.errorFix(src.Span, fmt.Sprintf("declare N::%s", src.Label), "unknown node type %q", src.Label)
		}
		if len(src.Args) != 2 {
			a.errorf(src.Span, "SEARCH_BM25<%s> requires (query, k) arguments", src.Label)
		}
		for _, arg := range src.Args {
			a.analyzeExpr(arg, sc, current)
		}
		return elemType{kind: traversal.KindNode, label: src.Label}
	case ast.SourceVar:
		b, ok := sc.lookup(src.Var)
		if !ok {
			a.errorf(src.Span, "undeclared name %q: not a parameter or previously assigned local", src.Var)
			return elemType{}
		}
		if b.isParam {
			a.errorf(src.Span, "%q is a scalar parameter, not a traversable value", src.Var)
			return elemType{}
		}
		return b.elem
	default:
		return elemType{}
	}
}

func sourceStepName(k ast.SourceStepKind) string {
	switch k {
	case ast.SourceSearchV:
		return "SEARCH_V"
	case ast.SourceBruteForceSearchV:
		return "BRUTE_FORCE_SEARCH_V"
	default:
		return "source step"
	}
}

func (a *analyzer) analyzeStep(step ast.StepCall, et elemType, idx int, all []ast.StepCall, sc *scope, current elemType) elemType {
	tstep := traversal.Step(strings.ToLower(step.Name))
	to, err := traversal.CheckTransition(et.kind, tstep)
	if err != nil {
		a.errorf(step.Span, "%v", err)
		return et
	}

	next := elemType{kind: to}

	switch step.Name {
	case "OUT", "IN":
		edge, ok := a.sch.Edge(step.Label)
		if !ok {
			a.errorFix(step.Span, fmt.Sprintf("declare E::%s", step.Label), "unknown edge type %q", step.Label)
			break
		}
		ref := edge.To
		if step.Name == "IN" {
			ref = edge.From
		}
		if ref.Kind == schema.EndpointVector {
			next.kind = traversal.KindVector
		} else {
			next.kind = traversal.KindNode
		}
		next.label = ref.Label
	case "OUT_E", "IN_E":
		if _, ok := a.sch.Edge(step.Label); !ok {
			a.errorFix(step.Span, fmt.Sprintf("declare E::%s", step.Label), "unknown edge type %q", step.Label)
		}
		next.label = step.Label
	case "FROM_N", "TO_N":
		if et.label != "" {
			edge, ok := a.sch.Edge(et.label)
			if ok {
				ref := edge.From
				if step.Name == "TO_N" {
					ref = edge.To
				}
				if ref.Kind != schema.EndpointNode {
					a.errorf(step.Span, "%s on edge %q: declared endpoint is a Vector, use %s", step.Name, et.label, map[string]string{"FROM_N": "FROM_V", "TO_N": "TO_V"}[step.Name])
				}
				next.label = ref.Label
			}
		}
	case "FROM_V", "TO_V":
		if step.Label != "" {
			if _, ok := a.sch.Vector(step.Label); !ok {
				a.errorFix(step.Span, fmt.Sprintf("declare V::%s", step.Label), "unknown vector type %q", step.Label)
			}
			next.label = step.Label
		}
	case "SHORTEST_PATH":
		if step.Label != "" {
			if _, ok := a.sch.Edge(step.Label); !ok {
				a.errorFix(step.Span, fmt.Sprintf("declare E::%s", step.Label), "unknown edge type %q", step.Label)
			}
		}
		if len(step.Args) != 1 {
			a.errorf(step.Span, "shortest_path takes exactly one target-id argument")
		}
		for _, arg := range step.Args {
			a.analyzeExpr(arg, sc, et)
		}
	case "WHERE", "FILTER_REF":
		if len(step.Args) != 1 {
			a.errorf(step.Span, "%s takes exactly one predicate argument", step.Name)
			break
		}
		a.analyzeExpr(step.Args[0], sc, et)
		next = et
	case "ORDER_BY_ASC", "ORDER_BY_DESC":
		if len(step.Args) != 1 {
			a.errorf(step.Span, "%s takes exactly one field-name argument", step.Name)
			break
		}
		if id, ok := step.Args[0].(*ast.Identifier); ok {
			if !a.fieldExists(et, id.Name) {
				a.errorf(step.Span, "unknown field %q on %s for order_by", id.Name, et.kind)
			}
		}
		next = et
	case "RANGE":
		if len(step.Args) != 2 {
			a.errorf(step.Span, "range takes exactly two arguments (start, end)")
		}
		for _, arg := range step.Args {
			a.analyzeExpr(arg, sc, et)
		}
		next = et
	case "DEDUP":
		next = et
	case "UPDATE":
		if len(step.Args) != 1 {
			a.errorf(step.Span, "update takes exactly one field-map argument")
			break
		}
		obj, ok := step.Args[0].(*ast.ObjectExpr)
		if !ok {
			a.errorf(step.Span, "update's argument must be an object of fields to merge")
			break
		}
		for _, f := range obj.Fields {
			if !a.fieldExists(et, f.Name) {
				a.errorf(step.Span, "unknown field %q for update on %s", f.Name, et.kind)
			}
			a.analyzeExpr(f.Expr, sc, et)
		}
		next = et
	case "DROP":
		next = elemType{kind: traversal.KindEmpty}
	case "OBJECT":
		if len(step.Args) == 1 {
			a.analyzeExpr(step.Args[0], sc, et)
		}
		next = elemType{kind: traversal.KindObject}
	case "CLOSURE":
		if len(step.Args) == 1 {
			a.analyzeExpr(step.Args[0], sc, et)
		}
		next = elemType{kind: traversal.KindObject}
	case "EXCLUDE":
		isLast := idx == len(all)-1
		nextIsRemap := idx+1 < len(all) && (all[idx+1].Name == "OBJECT" || all[idx+1].Name == "CLOSURE")
		if !isLast && !nextIsRemap {
			a.errorFix(step.Span, "move exclude to the end of the traversal, or immediately before object/closure",
				"exclude must be the final step or immediately precede object/closure")
		}
		next = et
	}

	return next
}
