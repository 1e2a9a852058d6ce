// Package parser implements HQL's hand-written recursive-descent front end
// (spec §4.6.1: "a PEG grammar produces an AST with source locations on
// every node"). Grounded on the teacher's pkg/cypher/ast_builder.go
// clause-driven AST shape and pkg/cypher/parser.go's marker-method
// discriminated unions, generalized from Cypher's flat clause sequence
// (MATCH/WHERE/RETURN/...) into HQL's nested `QUERY name(params) => body
// RETURN exprs` grammar, schema blocks, and migration blocks. The parser
// validates only grammatical shape (spec §4.6.1: "source-language-agnostic
// about identifiers"); label/field/kind resolution is pkg/hql/analyzer's job.
//
// Concrete grammar (informal):
//
//	Program      := { NodeDecl | EdgeDecl | VectorDecl | MigrationDecl | QueryDecl }
//	NodeDecl     := "N" "::" IDENT "::" INT "{" FieldDecl* "}"
//	EdgeDecl     := "E" "::" IDENT "::" INT "{" "From" ":" IDENT "," "To" ":" IDENT "," FieldDecl* "}"
//	VectorDecl   := "V" "::" IDENT "::" INT "{" "dims" ":" INT "," FieldDecl* "}"
//	FieldDecl    := "INDEX"? IDENT ":" IDENT "?"? ("DEFAULT" Literal)? ","
//	MigrationDecl:= "MIGRATION" "FROM" INT "TO" INT "{" ItemMigration* "}"
//	ItemMigration:= IDENT "->" IDENT "{" PropertyRemap* "}"
//	PropertyRemap:= IDENT "->" IDENT ("DEFAULT" Literal)? ("CAST" IDENT)? ","
//	QueryDecl    := "QUERY" IDENT "(" (Param ("," Param)*)? ")" "=>" Statement* "RETURN" ReturnItem ("," ReturnItem)*
//	Statement    := IDENT "<-" Expr | "DROP" Expr | "FOR" IDENT "IN" Expr "{" Statement* "}" | Expr
//	Expr         := OrExpr
//	OrExpr       := AndExpr ("OR" AndExpr)*
//	AndExpr      := Unary ("AND" Unary)*
//	Unary        := "NOT"? Comparison
//	Comparison   := Traversal (CmpOp Traversal)?
//	Traversal    := Primary ("::" StepCall)* ("." IDENT)*
//	Primary      := "EXISTS" "(" Expr ")" | "(" Expr ")" | Literal | "[" Expr,* "]"
//	              | "AddN" "<" IDENT ">" "(" PropMap ")"
//	              | "AddE" "<" IDENT ">" "(" "from" ":" Expr "," "to" ":" Expr ("," PropMap)? ")"
//	              | "AddV" "<" IDENT ">" "(" Expr ("," PropMap)? ")"
//	              | SourceKeyword "<" IDENT ">" "(" Expr,* ")"
//	              | IDENT
package parser

import (
	"strconv"

	"github.com/helixdb/helix-go/pkg/hql/ast"
	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/hql/token"
	"github.com/helixdb/helix-go/pkg/value"
)

// sourceKeywords names the recognized source-step identifiers. These are
// plain identifiers, not reserved words, matched by literal text so the
// grammar never has to special-case keyword collisions with schema labels.
var sourceKeywords = map[string]ast.SourceStepKind{
	"N_FROM_TYPE":         ast.SourceNFromType,
	"N_FROM_ID":           ast.SourceNFromID,
	"N_FROM_INDEX":        ast.SourceNFromIndex,
	"E_FROM_TYPE":         ast.SourceEFromType,
	"E_FROM_ID":           ast.SourceEFromID,
	"SEARCH_V":            ast.SourceSearchV,
	"SEARCH_BM25":         ast.SourceSearchBM25,
	"BRUTE_FORCE_SEARCH_V": ast.SourceBruteForceSearchV,
}

// Parser consumes a token.Lexer and produces an *ast.Program, accumulating
// diagnostics instead of stopping at the first error so a single pass can
// report every parse problem in a source unit.
type Parser struct {
	lex    *token.Lexer
	tok    token.Token
	peeked *token.Token
	diag   []diag.Diagnostic
}

// Parse compiles source into an *ast.Program plus any diagnostics. It has
// no error result: every parse problem surfaces as an error-severity
// diagnostic (spec §4.6.2).
func Parse(source string) (*ast.Program, []diag.Diagnostic) {
	p := &Parser{lex: token.NewLexer(source)}
	p.advance()
	prog := p.parseProgram()
	return prog, p.diag
}

func (p *Parser) advance() {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return
	}
	p.tok = p.lex.Next()
}

// peek returns the token after the current one without consuming it,
// buffering it for the next advance(). Used for the handful of one-token
// lookahead decisions in the grammar (an IDENT followed by "<-" starts a
// LetStmt; an IDENT followed by ":" starts an aliased RETURN item) where
// struct-copy backtracking would silently drop tokens already pulled from
// the one-shot Lexer.
func (p *Parser) peek() token.Token {
	if p.peeked == nil {
		t := p.lex.Next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

func (p *Parser) errorf(span token.Span, format string, args ...any) {
	p.diag = append(p.diag, diag.Errorf(span, format, args...))
}

// expect consumes the current token if it matches k, else reports a
// ParseError diagnostic naming what was expected and returns false.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.tok.Kind != k {
		p.errorf(p.tok.Span, "expected %s, found %s %q", k, p.tok.Kind, p.tok.Literal)
		return p.tok, false
	}
	t := p.tok
	p.advance()
	return t, true
}

// syncTo skips tokens until one of the given kinds (or EOF) is the current
// token, so one malformed declaration doesn't cascade diagnostics through
// the rest of the file.
func (p *Parser) syncTo(kinds ...token.Kind) {
	for !p.at(token.EOF) {
		for _, k := range kinds {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		switch {
		case p.at(token.IDENT) && p.tok.Literal == "N":
			if n := p.parseNodeDecl(); n != nil {
				prog.Nodes = append(prog.Nodes, n)
			}
		case p.at(token.IDENT) && p.tok.Literal == "E":
			if e := p.parseEdgeDecl(); e != nil {
				prog.Edges = append(prog.Edges, e)
			}
		case p.at(token.IDENT) && p.tok.Literal == "V":
			if v := p.parseVectorDecl(); v != nil {
				prog.Vectors = append(prog.Vectors, v)
			}
		case p.at(token.MIGRATION):
			if m := p.parseMigrationDecl(); m != nil {
				prog.Migrations = append(prog.Migrations, m)
			}
		case p.at(token.QUERY):
			if q := p.parseQueryDecl(); q != nil {
				prog.Queries = append(prog.Queries, q)
			}
		default:
			p.errorf(p.tok.Span, "expected a schema (N::/E::/V::), MIGRATION, or QUERY declaration, found %s %q", p.tok.Kind, p.tok.Literal)
			p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		}
	}
	return prog
}

// HQL reserves the bare identifiers "N", "E", "V" at declaration position
// as schema-kind sigils (always followed by "::Label::Version"); a schema
// source file must not declare a query parameter or local named N/E/V.
func (p *Parser) parseFieldDecl() (ast.FieldDecl, bool) {
	start := p.tok.Span
	prefix := ast.PrefixPlain
	if p.at(token.INDEX) {
		prefix = ast.PrefixIndex
		p.advance()
	}
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.FieldDecl{}, false
	}
	if _, ok := p.expect(token.COLON); !ok {
		return ast.FieldDecl{}, false
	}
	typeTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.FieldDecl{}, false
	}
	if p.at(token.QUESTION) {
		if prefix == ast.PrefixIndex {
			p.errorf(p.tok.Span, "field %q cannot be both INDEX and optional", nameTok.Literal)
		} else {
			prefix = ast.PrefixOptional
		}
		p.advance()
	}
	var def ast.Expr
	if p.at(token.DEFAULT) {
		p.advance()
		def = p.parsePrimary()
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	return ast.FieldDecl{
		Name: nameTok.Literal, Type: typeTok.Literal, Prefix: prefix, Default: def,
		Span: token.Span{Start: start.Start, End: p.tok.Span.Start},
	}, true
}

func (p *Parser) parseVersionSuffix() (uint32, bool) {
	if _, ok := p.expect(token.DCOLON); !ok {
		return 0, false
	}
	numTok, ok := p.expect(token.INT)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(numTok.Literal, 10, 32)
	if err != nil {
		p.errorf(numTok.Span, "invalid version number %q", numTok.Literal)
		return 0, false
	}
	return uint32(n), true
}

func (p *Parser) parseNodeDecl() *ast.NodeDecl {
	start := p.tok.Span
	p.advance() // "N"
	if _, ok := p.expect(token.DCOLON); !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	labelTok, ok := p.expect(token.IDENT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	version, ok := p.parseVersionSuffix()
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	n := &ast.NodeDecl{Label: labelTok.Literal, Version: version}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		f, ok := p.parseFieldDecl()
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		n.Fields = append(n.Fields, f)
	}
	end, _ := p.expect(token.RBRACE)
	n.Span = token.Span{Start: start.Start, End: end.Span.End}
	return n
}

func (p *Parser) parseEndpoint(keyword string) (ast.EndpointDecl, bool) {
	nameTok, ok := p.expect(token.IDENT)
	if !ok || nameTok.Literal != keyword {
		p.errorf(nameTok.Span, "expected %q endpoint declaration", keyword)
		return ast.EndpointDecl{}, false
	}
	if _, ok := p.expect(token.COLON); !ok {
		return ast.EndpointDecl{}, false
	}
	labelTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.EndpointDecl{}, false
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	return ast.EndpointDecl{Label: labelTok.Literal, Span: labelTok.Span}, true
}

func (p *Parser) parseEdgeDecl() *ast.EdgeDecl {
	start := p.tok.Span
	p.advance() // "E"
	if _, ok := p.expect(token.DCOLON); !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	labelTok, ok := p.expect(token.IDENT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	version, ok := p.parseVersionSuffix()
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	e := &ast.EdgeDecl{Label: labelTok.Literal, Version: version}
	e.From, _ = p.parseEndpoint("From")
	e.To, _ = p.parseEndpoint("To")
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		f, ok := p.parseFieldDecl()
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		e.Fields = append(e.Fields, f)
	}
	end, _ := p.expect(token.RBRACE)
	e.Span = token.Span{Start: start.Start, End: end.Span.End}
	return e
}

func (p *Parser) parseVectorDecl() *ast.VectorDecl {
	start := p.tok.Span
	p.advance() // "V"
	if _, ok := p.expect(token.DCOLON); !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	labelTok, ok := p.expect(token.IDENT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	version, ok := p.parseVersionSuffix()
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	v := &ast.VectorDecl{Label: labelTok.Literal, Version: version}
	if p.at(token.IDENT) && p.tok.Literal == "dims" {
		p.advance()
		if _, ok := p.expect(token.COLON); ok {
			numTok, ok := p.expect(token.INT)
			if ok {
				n, err := strconv.Atoi(numTok.Literal)
				if err != nil {
					p.errorf(numTok.Span, "invalid dims %q", numTok.Literal)
				}
				v.Dimensions = n
			}
		}
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		f, ok := p.parseFieldDecl()
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		v.Fields = append(v.Fields, f)
	}
	end, _ := p.expect(token.RBRACE)
	v.Span = token.Span{Start: start.Start, End: end.Span.End}
	return v
}

func (p *Parser) parseMigrationDecl() *ast.MigrationDecl {
	start := p.tok.Span
	p.advance() // MIGRATION
	if tk, ok := p.expect(token.IDENT); !ok || tk.Literal != "FROM" {
		p.errorf(tk.Span, "expected FROM in MIGRATION header")
	}
	fromTok, ok := p.expect(token.INT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	if tk, ok := p.expect(token.IDENT); !ok || tk.Literal != "TO" {
		p.errorf(tk.Span, "expected TO in MIGRATION header")
	}
	toTok, ok := p.expect(token.INT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	from, _ := strconv.ParseUint(fromTok.Literal, 10, 32)
	to, _ := strconv.ParseUint(toTok.Literal, 10, 32)
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	m := &ast.MigrationDecl{From: uint32(from), To: uint32(to)}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		item, ok := p.parseItemMigration()
		if !ok {
			p.syncTo(token.RBRACE)
			continue
		}
		m.Items = append(m.Items, item)
	}
	end, _ := p.expect(token.RBRACE)
	m.Span = token.Span{Start: start.Start, End: end.Span.End}
	return m
}

func (p *Parser) parseItemMigration() (ast.ItemMigrationDecl, bool) {
	start := p.tok.Span
	srcTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.ItemMigrationDecl{}, false
	}
	if _, ok := p.expect(token.ARROW); !ok {
		return ast.ItemMigrationDecl{}, false
	}
	dstTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.ItemMigrationDecl{}, false
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return ast.ItemMigrationDecl{}, false
	}
	item := ast.ItemMigrationDecl{SourceItem: srcTok.Literal, TargetItem: dstTok.Literal}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		remap, ok := p.parsePropertyRemap()
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		item.Properties = append(item.Properties, remap)
	}
	end, _ := p.expect(token.RBRACE)
	item.Span = token.Span{Start: start.Start, End: end.Span.End}
	return item, true
}

func (p *Parser) parsePropertyRemap() (ast.PropertyRemapDecl, bool) {
	start := p.tok.Span
	srcTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.PropertyRemapDecl{}, false
	}
	if _, ok := p.expect(token.ARROW); !ok {
		return ast.PropertyRemapDecl{}, false
	}
	dstTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.PropertyRemapDecl{}, false
	}
	remap := ast.PropertyRemapDecl{Source: srcTok.Literal, Target: dstTok.Literal}
	if p.at(token.DEFAULT) {
		p.advance()
		remap.Default = p.parsePrimary()
	}
	if p.at(token.CAST) {
		p.advance()
		castTok, ok := p.expect(token.IDENT)
		if ok {
			remap.Cast = castTok.Literal
		}
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	remap.Span = token.Span{Start: start.Start, End: p.tok.Span.Start}
	return remap, true
}

func (p *Parser) parseQueryDecl() *ast.QueryDecl {
	start := p.tok.Span
	p.advance() // QUERY
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	q := &ast.QueryDecl{Name: nameTok.Literal}
	if _, ok := p.expect(token.LPAREN); !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		pn, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		if _, ok := p.expect(token.COLON); !ok {
			break
		}
		pt, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		q.Params = append(q.Params, ast.ParamDecl{Name: pn.Literal, Type: pt.Literal, Span: pn.Span})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	if _, ok := p.expect(token.FATARROW); !ok {
		p.syncTo(token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
		return nil
	}
	for !p.at(token.RETURN) && !p.at(token.EOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			p.syncTo(token.RETURN, token.IDENT, token.MIGRATION, token.QUERY, token.EOF)
			if !p.at(token.RETURN) {
				break
			}
			continue
		}
		q.Body = append(q.Body, stmt)
	}
	if _, ok := p.expect(token.RETURN); ok {
		for {
			item := p.parseReturnItem()
			q.Returns = append(q.Returns, item)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	q.Span = token.Span{Start: start.Start, End: p.tok.Span.Start}
	return q
}

func (p *Parser) parseReturnItem() ast.ReturnItem {
	start := p.tok.Span
	// Alias form "name: expr" is only recognized when the identifier is
	// immediately followed by ':' (not '::', which starts a traversal step
	// on a bound local named the same as a schema sigil is disallowed, so
	// this is unambiguous).
	if p.at(token.IDENT) && p.peek().Kind == token.COLON {
		nameTok := p.tok
		p.advance() // consume identifier
		p.advance() // consume ':'
		e := p.parseExpr()
		return ast.ReturnItem{Alias: nameTok.Literal, Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	e := p.parseExpr()
	return ast.ReturnItem{Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
}

func (p *Parser) parseStatement() ast.Statement {
	start := p.tok.Span
	switch {
	case p.at(token.DROP):
		p.advance()
		e := p.parseExpr()
		return &ast.DropStmt{Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	case p.at(token.FOR):
		p.advance()
		varTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		if _, ok := p.expect(token.IN); !ok {
			return nil
		}
		iter := p.parseExpr()
		if _, ok := p.expect(token.LBRACE); !ok {
			return nil
		}
		var body []ast.Statement
		for !p.at(token.RBRACE) && !p.at(token.EOF) {
			s := p.parseStatement()
			if s == nil {
				break
			}
			body = append(body, s)
		}
		end, _ := p.expect(token.RBRACE)
		return &ast.ForStmt{Var: varTok.Literal, Iterable: iter, Body: body, Span: token.Span{Start: start.Start, End: end.Span.End}}
	case p.at(token.LET):
		p.advance()
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		if _, ok := p.expect(token.ASSIGN); !ok {
			return nil
		}
		e := p.parseExpr()
		return &ast.LetStmt{Name: nameTok.Literal, Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	case p.at(token.IDENT) && p.peek().Kind == token.ASSIGN:
		nameTok := p.tok
		p.advance() // consume identifier
		p.advance() // consume '<-'
		e := p.parseExpr()
		return &ast.LetStmt{Name: nameTok.Literal, Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	default:
		e := p.parseExpr()
		if e == nil {
			return nil
		}
		return &ast.ExprStmt{Expr: e, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
}

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.OR) {
		start := p.tok.Span
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Op: token.OR, Left: left, Right: right, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseUnary()
	for p.at(token.AND) {
		start := p.tok.Span
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Op: token.AND, Left: left, Right: right, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.at(token.NOT) {
		start := p.tok.Span
		p.advance()
		operand := p.parseComparison()
		return &ast.UnaryExpr{Op: token.NOT, Operand: operand, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	return p.parseComparison()
}

var cmpOps = map[token.Kind]bool{
	token.EQ: true, token.NEQ: true, token.LANGLE: true, token.RANGLE: true,
	token.LTE: true, token.GTE: true,
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseTraversal()
	if cmpOps[p.tok.Kind] {
		op := p.tok.Kind
		start := p.tok.Span
		p.advance()
		right := p.parseTraversal()
		return &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	return left
}

// parseTraversal parses a Primary optionally followed by a chain of
// "::StepCall" transition steps and/or ".field" accesses.
func (p *Parser) parseTraversal() ast.Expr {
	start := p.tok.Span
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}

	// A bare identifier only becomes a traversal when a "::" step follows it.
	if _, bare := primary.(*ast.Identifier); !bare || p.at(token.DCOLON) {
		if src := asSourceExprTraversal(primary); src != nil {
			for p.at(token.DCOLON) {
				step := p.parseStepCall()
				src.Steps = append(src.Steps, step)
			}
			src.Span = token.Span{Start: start.Start, End: p.tok.Span.Start}
			primary = src
		}
	}

	for p.at(token.DOT) {
		p.advance()
		fieldTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		primary = &ast.FieldAccess{Base: primary, Field: fieldTok.Literal, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
	}
	return primary
}

// asSourceExprTraversal wraps a bare Identifier as a SourceVar-rooted
// TraversalExpr so "::" step chains can attach to a previously bound
// local (e.g. `u::OUT<Knows>`), without disturbing non-traversal uses of
// the same identifier (e.g. a bare parameter in RETURN).
func asSourceExprTraversal(e ast.Expr) *ast.TraversalExpr {
	if t, ok := e.(*ast.TraversalExpr); ok {
		return t
	}
	if id, ok := e.(*ast.Identifier); ok {
		return &ast.TraversalExpr{
			Source: &ast.SourceStep{Kind: ast.SourceVar, Var: id.Name, Span: id.Span},
			Span:   id.Span,
		}
	}
	return nil
}

func (p *Parser) parseStepCall() ast.StepCall {
	start := p.tok.Span
	p.advance() // "::"
	var nameTok token.Token
	if p.at(token.DROP) || p.at(token.IN) {
		// DROP and IN lex as keywords but also name traversal steps.
		nameTok = p.tok
		p.advance()
	} else {
		var ok bool
		nameTok, ok = p.expect(token.IDENT)
		if !ok {
			return ast.StepCall{Span: start}
		}
	}
	step := ast.StepCall{Name: nameTok.Literal, Span: start}

	if p.at(token.LANGLE) {
		p.advance()
		labelTok, ok := p.expect(token.IDENT)
		if ok {
			step.Label = labelTok.Literal
		}
		p.expect(token.RANGLE)
	}

	switch step.Name {
	case "OBJECT":
		if p.at(token.LBRACE) {
			step.Args = []ast.Expr{p.parseObjectExpr()}
		}
	case "UPDATE":
		if p.at(token.LPAREN) {
			p.advance()
			if p.at(token.LBRACE) {
				step.Args = []ast.Expr{p.parseObjectExpr()}
			}
			p.expect(token.RPAREN)
		}
	case "CLOSURE":
		if p.at(token.PIPE) {
			step.Args = []ast.Expr{p.parseClosureExpr()}
		}
	case "EXCLUDE":
		if p.at(token.LPAREN) {
			p.advance()
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				fieldTok, ok := p.expect(token.IDENT)
				if !ok {
					break
				}
				step.Args = append(step.Args, &ast.Identifier{Name: fieldTok.Literal, Span: fieldTok.Span})
				if p.at(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.RPAREN)
		}
	default:
		if p.at(token.LPAREN) {
			step.Args = p.parseArgList()
		}
	}
	step.Span = token.Span{Start: start.Start, End: p.tok.Span.Start}
	return step
}

func (p *Parser) parseArgList() []ast.Expr {
	p.expect(token.LPAREN)
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return args
}

func (p *Parser) parseObjectExpr() ast.Expr {
	start := p.tok.Span
	p.expect(token.LBRACE)
	obj := &ast.ObjectExpr{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		if _, ok := p.expect(token.COLON); !ok {
			continue
		}
		val := p.parseExpr()
		obj.Fields = append(obj.Fields, ast.ObjectField{Name: nameTok.Literal, Expr: val})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RBRACE)
	obj.Span = token.Span{Start: start.Start, End: end.Span.End}
	return obj
}

// parseClosureExpr parses `|v| => expr`: the current pipeline item is
// bound to v within expr (spec §4.5, "closure |v|{...}").
func (p *Parser) parseClosureExpr() ast.Expr {
	start := p.tok.Span
	p.expect(token.PIPE)
	paramTok, _ := p.expect(token.IDENT)
	p.expect(token.PIPE)
	p.expect(token.FATARROW)
	result := p.parseExpr()
	return &ast.ClosureExpr{Param: paramTok.Literal, Result: result, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
}

func (p *Parser) parsePropMap() []ast.PropInit {
	p.expect(token.LBRACE)
	var props []ast.PropInit
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			p.syncTo(token.RBRACE, token.COMMA)
			continue
		}
		if _, ok := p.expect(token.COLON); !ok {
			continue
		}
		val := p.parseExpr()
		props = append(props, ast.PropInit{Name: nameTok.Literal, Expr: val})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return props
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.tok.Span
	switch {
	case p.at(token.LPAREN):
		p.advance()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e
	case p.at(token.LBRACKET):
		p.advance()
		arr := &ast.ArrayLit{}
		for !p.at(token.RBRACKET) && !p.at(token.EOF) {
			arr.Elems = append(arr.Elems, p.parseExpr())
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		end, _ := p.expect(token.RBRACKET)
		arr.Span = token.Span{Start: start.Start, End: end.Span.End}
		return arr
	case p.at(token.STRING):
		v := p.tok
		p.advance()
		return &ast.Literal{Value: value.Str(v.Literal), Span: v.Span}
	case p.at(token.TRUE):
		p.advance()
		return &ast.Literal{Value: value.Bool(true), Span: start}
	case p.at(token.FALSE):
		p.advance()
		return &ast.Literal{Value: value.Bool(false), Span: start}
	case p.at(token.INT):
		v := p.tok
		p.advance()
		n, _ := strconv.ParseInt(v.Literal, 10, 64)
		return &ast.Literal{Value: value.I64(n), Span: v.Span}
	case p.at(token.FLOAT):
		v := p.tok
		p.advance()
		f, _ := strconv.ParseFloat(v.Literal, 64)
		return &ast.Literal{Value: value.F64(f), Span: v.Span}
	case p.at(token.IDENT):
		return p.parseIdentOrCall()
	default:
		p.errorf(p.tok.Span, "unexpected token %s %q in expression", p.tok.Kind, p.tok.Literal)
		p.advance()
		return nil
	}
}

func (p *Parser) parseIdentOrCall() ast.Expr {
	start := p.tok.Span
	nameTok := p.tok
	p.advance()

	switch nameTok.Literal {
	case "EXISTS":
		p.expect(token.LPAREN)
		inner := p.parseExpr()
		end, _ := p.expect(token.RPAREN)
		return &ast.ExistsExpr{Traversal: inner, Span: token.Span{Start: start.Start, End: end.Span.End}}
	case "AddN":
		return p.parseAddN(start)
	case "AddE":
		return p.parseAddE(start)
	case "AddV":
		return p.parseAddV(start)
	}

	if kind, ok := sourceKeywords[nameTok.Literal]; ok {
		return p.parseSourceCall(start, kind)
	}

	return &ast.Identifier{Name: nameTok.Literal, Span: nameTok.Span}
}

func (p *Parser) parseSourceCall(start token.Span, kind ast.SourceStepKind) ast.Expr {
	src := &ast.SourceStep{Kind: kind, Span: start}
	if p.at(token.LANGLE) {
		p.advance()
		labelTok, ok := p.expect(token.IDENT)
		if ok {
			src.Label = labelTok.Literal
		}
		p.expect(token.RANGLE)
	}
	if p.at(token.LPAREN) {
		src.Args = p.parseArgList()
	}
	return &ast.TraversalExpr{Source: src, Span: token.Span{Start: start.Start, End: p.tok.Span.Start}}
}

func (p *Parser) parseAddN(start token.Span) ast.Expr {
	add := &ast.AddNExpr{}
	if p.at(token.LANGLE) {
		p.advance()
		labelTok, ok := p.expect(token.IDENT)
		if ok {
			add.Label = labelTok.Literal
		}
		p.expect(token.RANGLE)
	}
	p.expect(token.LPAREN)
	if p.at(token.LBRACE) {
		add.Props = p.parsePropMap()
	}
	end, _ := p.expect(token.RPAREN)
	add.Span = token.Span{Start: start.Start, End: end.Span.End}
	return add
}

func (p *Parser) parseAddE(start token.Span) ast.Expr {
	add := &ast.AddEExpr{}
	if p.at(token.LANGLE) {
		p.advance()
		labelTok, ok := p.expect(token.IDENT)
		if ok {
			add.Label = labelTok.Literal
		}
		p.expect(token.RANGLE)
	}
	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		if p.at(token.LBRACE) {
			add.Props = p.parsePropMap()
			break
		}
		kwTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		p.expect(token.COLON)
		val := p.parseExpr()
		switch kwTok.Literal {
		case "from":
			add.From = val
		case "to":
			add.To = val
		}
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	end, _ := p.expect(token.RPAREN)
	add.Span = token.Span{Start: start.Start, End: end.Span.End}
	return add
}

func (p *Parser) parseAddV(start token.Span) ast.Expr {
	add := &ast.AddVExpr{}
	if p.at(token.LANGLE) {
		p.advance()
		labelTok, ok := p.expect(token.IDENT)
		if ok {
			add.Label = labelTok.Literal
		}
		p.expect(token.RANGLE)
	}
	p.expect(token.LPAREN)
	if !p.at(token.RPAREN) {
		add.Vector = p.parseExpr()
		if p.at(token.COMMA) {
			p.advance()
			if p.at(token.LBRACE) {
				add.Props = p.parsePropMap()
			}
		}
	}
	end, _ := p.expect(token.RPAREN)
	add.Span = token.Span{Start: start.Start, End: end.Span.End}
	return add
}
