// Package ast defines the spanned abstract syntax tree produced by
// pkg/hql/parser, consumed by pkg/hql/analyzer and pkg/hql/codegen (spec
// §4.6.1: "an AST with source locations on every node"). The parser is
// source-language-agnostic about identifiers; it validates only structural
// correctness, so every node here is a bare grammatical shape — no
// resolution of labels, fields, or kinds happens until the analyzer pass.
package ast

import (
	"github.com/helixdb/helix-go/pkg/hql/token"
	"github.com/helixdb/helix-go/pkg/value"
)

// Program is the root of one compiled HQL source unit — schema
// declarations, migrations, and queries concatenated from schema.hx,
// *.hx query files, and migration blocks, since "the compiler consumes
// these file contents as one logical source; file boundaries are
// cosmetic" (spec §6).
type Program struct {
	Nodes      []*NodeDecl
	Edges      []*EdgeDecl
	Vectors    []*VectorDecl
	Migrations []*MigrationDecl
	Queries    []*QueryDecl
}

// Prefix is the field modifier parsed from schema declarations: plain,
// INDEX, or optional (trailing `?`).
type Prefix int

const (
	PrefixPlain Prefix = iota
	PrefixIndex
	PrefixOptional
)

// FieldDecl is one declared property inside a N::/E::/V:: block.
type FieldDecl struct {
	Name    string
	Type    string // raw type name; resolved to value.Kind by the analyzer
	Prefix  Prefix
	Default Expr // nil if none declared
	Span    token.Span
}

// EndpointDecl names the raw `From`/`To` label text in an edge
// declaration; the analyzer resolves it to a schema.EndpointRef.
type EndpointDecl struct {
	Label string
	Span  token.Span
}

// NodeDecl is one `N::Label::Version { fields... }` declaration.
type NodeDecl struct {
	Label   string
	Version uint32
	Fields  []FieldDecl
	Span    token.Span
}

// EdgeDecl is one `E::Label::Version { From: X, To: Y, fields... }` declaration.
type EdgeDecl struct {
	Label   string
	Version uint32
	From    EndpointDecl
	To      EndpointDecl
	Fields  []FieldDecl
	Span    token.Span
}

// VectorDecl is one `V::Label::Version { dims: N, fields... }` declaration.
type VectorDecl struct {
	Label      string
	Version    uint32
	Dimensions int
	Fields     []FieldDecl
	Span       token.Span
}

// PropertyRemapDecl is one `source -> target [DEFAULT expr] [CAST Type]`
// line inside a migration item block.
type PropertyRemapDecl struct {
	Source  string
	Target  string
	Default Expr
	Cast    string // raw cast type name, "" if none
	Span    token.Span
}

// ItemMigrationDecl is one `SourceItem -> TargetItem { remaps... }` block.
type ItemMigrationDecl struct {
	SourceItem string
	TargetItem string
	Properties []PropertyRemapDecl
	Span       token.Span
}

// MigrationDecl is one `MIGRATION FROM v TO v { items... }` block.
type MigrationDecl struct {
	From, To uint32
	Items    []ItemMigrationDecl
	Span     token.Span
}

// ParamDecl is one `name: Type` query parameter.
type ParamDecl struct {
	Name string
	Type string
	Span token.Span
}

// QueryDecl is one `QUERY name(params) => body RETURN exprs` declaration.
type QueryDecl struct {
	Name    string
	Params  []ParamDecl
	Body    []Statement
	Returns []ReturnItem
	Span    token.Span
}

// ReturnItem is one expression (optionally aliased) in a RETURN list.
type ReturnItem struct {
	Alias string // "" if the expression is returned under its own name
	Expr  Expr
	Span  token.Span
}

// Statement is one line of a query body.
type Statement interface{ stmtMarker() }

// LetStmt binds the result of Expr to Name in the query's lexical scope.
type LetStmt struct {
	Name string
	Expr Expr
	Span token.Span
}

// ExprStmt evaluates Expr for effect (e.g. a bare AddN/AddE/AddV call, or a
// drop step at the end of a traversal) without binding a name.
type ExprStmt struct {
	Expr Expr
	Span token.Span
}

// DropStmt drops every element Expr evaluates to.
type DropStmt struct {
	Expr Expr
	Span token.Span
}

// ForStmt iterates Var over Iterable, running Body once per element.
type ForStmt struct {
	Var      string
	Iterable Expr
	Body     []Statement
	Span     token.Span
}

func (*LetStmt) stmtMarker()  {}
func (*ExprStmt) stmtMarker() {}
func (*DropStmt) stmtMarker() {}
func (*ForStmt) stmtMarker()  {}

// Expr is any HQL expression: a literal, identifier, traversal, boolean
// combinator, object remapping, or mutating add-expression.
type Expr interface {
	exprMarker()
	SpanOf() token.Span
}

// Identifier references a query parameter or a previously bound local.
type Identifier struct {
	Name string
	Span token.Span
}

// Literal is a parsed scalar constant.
type Literal struct {
	Value value.Value
	Span  token.Span
}

// ArrayLit is a parsed `[e1, e2, ...]` literal, used for vector data and
// array-typed properties.
type ArrayLit struct {
	Elems []Expr
	Span  token.Span
}

// FieldAccess resolves a named property on the value Base evaluates to
// (`base.field`), used in RETURN lists and remapping bodies.
type FieldAccess struct {
	Base  Expr
	Field string
	Span  token.Span
}

// BinaryExpr covers AND/OR/comparison operators.
type BinaryExpr struct {
	Op    token.Kind
	Left  Expr
	Right Expr
	Span  token.Span
}

// UnaryExpr covers NOT.
type UnaryExpr struct {
	Op      token.Kind
	Operand Expr
	Span    token.Span
}

// ExistsExpr evaluates Traversal and returns whether it yields any element
// (spec §4.5, "exists(traversal)").
type ExistsExpr struct {
	Traversal Expr
	Span      token.Span
}

// SourceStepKind discriminates a traversal's initial producer.
type SourceStepKind int

const (
	SourceNFromType SourceStepKind = iota
	SourceNFromID
	SourceNFromIndex
	SourceEFromType
	SourceEFromID
	SourceSearchV
	SourceSearchBM25
	SourceBruteForceSearchV
	SourceVar // traversal continues from a previously bound local
)

// SourceStep is the initial producer of a TraversalExpr.
type SourceStep struct {
	Kind  SourceStepKind
	Label string // node/edge/vector label, "" for SourceVar
	Var   string // bound-local name, only for SourceVar
	Args  []Expr
	Span  token.Span
}

// StepCall is one `::NAME<Label>(args)` transition step in a chain.
type StepCall struct {
	Name  string
	Label string // generic-parameter label, "" if omitted
	Args  []Expr
	Span  token.Span
}

// TraversalExpr is a source step followed by zero or more transition steps.
type TraversalExpr struct {
	Source *SourceStep
	Steps  []StepCall
	Span   token.Span
}

// ObjectField is one `name: expr` entry in an ObjectExpr.
type ObjectField struct {
	Name string
	Expr Expr
}

// ObjectExpr builds a new record per incoming item (spec §4.5,
// "object{field: expr, ...}").
type ObjectExpr struct {
	Fields []ObjectField
	Span   token.Span
}

// ClosureExpr binds the current pipeline item to Param and evaluates Body
// statements then Result, per spec §4.5 ("closure |v|{...}").
type ClosureExpr struct {
	Param  string
	Body   []Statement
	Result Expr
	Span   token.Span
}

// ExcludeExpr removes Fields from the current item's property view.
type ExcludeExpr struct {
	Source Expr
	Fields []string
	Span   token.Span
}

// PropInit is one `name: expr` entry in an AddN/AddE/AddV property map.
type PropInit struct {
	Name string
	Expr Expr
}

// AddNExpr is an `AddN<Label>({...})` mutating expression.
type AddNExpr struct {
	Label string
	Props []PropInit
	Span  token.Span
}

// AddEExpr is an `AddE<Label>(from: ..., to: ..., {...})` mutating expression.
type AddEExpr struct {
	Label string
	From  Expr
	To    Expr
	Props []PropInit
	Span  token.Span
}

// AddVExpr is an `AddV<Label>(vectorExpr, {...})` mutating expression.
type AddVExpr struct {
	Label  string
	Vector Expr
	Props  []PropInit
	Span   token.Span
}

func (*Identifier) exprMarker()    {}
func (*Literal) exprMarker()       {}
func (*ArrayLit) exprMarker()      {}
func (*FieldAccess) exprMarker()   {}
func (*BinaryExpr) exprMarker()    {}
func (*UnaryExpr) exprMarker()     {}
func (*ExistsExpr) exprMarker()    {}
func (*TraversalExpr) exprMarker() {}
func (*ObjectExpr) exprMarker()    {}
func (*ClosureExpr) exprMarker()   {}
func (*ExcludeExpr) exprMarker()   {}
func (*AddNExpr) exprMarker()      {}
func (*AddEExpr) exprMarker()      {}
func (*AddVExpr) exprMarker()      {}

func (e *Identifier) SpanOf() token.Span    { return e.Span }
func (e *Literal) SpanOf() token.Span       { return e.Span }
func (e *ArrayLit) SpanOf() token.Span      { return e.Span }
func (e *FieldAccess) SpanOf() token.Span   { return e.Span }
func (e *BinaryExpr) SpanOf() token.Span    { return e.Span }
func (e *UnaryExpr) SpanOf() token.Span     { return e.Span }
func (e *ExistsExpr) SpanOf() token.Span    { return e.Span }
func (e *TraversalExpr) SpanOf() token.Span { return e.Span }
func (e *ObjectExpr) SpanOf() token.Span    { return e.Span }
func (e *ClosureExpr) SpanOf() token.Span   { return e.Span }
func (e *ExcludeExpr) SpanOf() token.Span   { return e.Span }
func (e *AddNExpr) SpanOf() token.Span      { return e.Span }
func (e *AddEExpr) SpanOf() token.Span      { return e.Span }
func (e *AddVExpr) SpanOf() token.Span      { return e.Span }
