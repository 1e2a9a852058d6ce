package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/hql/parser"
)

func analyze(t *testing.T, source string) (*ResolvedQuery, []diag.Diagnostic) {
	t.Helper()
	prog, parseDiags := parser.Parse(source)
	require.False(t, diag.HasErrors(parseDiags), "unexpected parse errors: %v", parseDiags)

	sch, resolved, diags := Analyze(prog)
	require.NotNil(t, sch)
	if len(resolved) == 0 {
		return nil, diags
	}
	return resolved[0], diags
}

func TestAnalyzeValidSchemaAndQuery(t *testing.T) {
	rq, diags := analyze(t, `
N::Person::1 {
	name: String,
	age: I64,
}

QUERY getPerson(id: ID) =>
	p <- N_FROM_ID<Person>(id)
	RETURN p
`)
	assert.False(t, diag.HasErrors(diags))
	require.NotNil(t, rq)
	assert.False(t, rq.Mutating)
}

func TestAnalyzeDetectsMutatingQuery(t *testing.T) {
	rq, diags := analyze(t, `
N::Person::1 {
	name: String,
}

QUERY makePerson(name: String) =>
	p <- AddN<Person>({name: name})
	RETURN p
`)
	assert.False(t, diag.HasErrors(diags))
	require.NotNil(t, rq)
	assert.True(t, rq.Mutating)
}

func TestAnalyzeDetectsDropAsMutating(t *testing.T) {
	rq, diags := analyze(t, `
N::Person::1 {
	name: String,
}

QUERY deletePerson(id: ID) =>
	N_FROM_ID<Person>(id)::DROP
	RETURN id
`)
	assert.False(t, diag.HasErrors(diags))
	require.NotNil(t, rq)
	assert.True(t, rq.Mutating)
}

func TestAnalyzeRejectsUnknownNodeLabel(t *testing.T) {
	_, diags := analyze(t, `
QUERY lookup(id: ID) =>
	p <- N_FROM_ID<Ghost>(id)
	RETURN p
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeRejectsUndeclaredName(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
}

QUERY bad() =>
	p <- N_FROM_ID<Person>(missing)
	RETURN p
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeRejectsDuplicateField(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
	name: String,
}
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeRejectsUnknownFieldType(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: Wobble,
}
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeRejectsDuplicateQueryName(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
}

QUERY getPerson(id: ID) =>
	p <- N_FROM_ID<Person>(id)
	RETURN p

QUERY getPerson(id: ID) =>
	p <- N_FROM_ID<Person>(id)
	RETURN p
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeRejectsMissingRequiredField(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
	age: I64,
}

QUERY makePerson(name: String) =>
	p <- AddN<Person>({name: name})
	RETURN p
`)
	assert.True(t, diag.HasErrors(diags))
}

func TestAnalyzeAllowsOptionalFieldOmitted(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
	nickname: String?,
}

QUERY makePerson(name: String) =>
	p <- AddN<Person>({name: name})
	RETURN p
`)
	assert.False(t, diag.HasErrors(diags))
}

func TestAnalyzeTraversalLegalityViaOut(t *testing.T) {
	rq, diags := analyze(t, `
N::Person::1 {
	name: String,
}

E::Knows::1 {
	From: Person,
	To: Person,
}

QUERY friendsOf(id: ID) =>
	friends <- N_FROM_ID<Person>(id)::OUT<Knows>
	RETURN friends
`)
	assert.False(t, diag.HasErrors(diags))
	require.NotNil(t, rq)
}

func TestAnalyzeRejectsUnknownEdgeOnOut(t *testing.T) {
	_, diags := analyze(t, `
N::Person::1 {
	name: String,
}

QUERY friendsOf(id: ID) =>
	friends <- N_FROM_ID<Person>(id)::OUT<Ghost>
	RETURN friends
`)
	assert.True(t, diag.HasErrors(diags))
}
