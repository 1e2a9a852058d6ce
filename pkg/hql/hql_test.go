package hql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdb/helix-go/pkg/hql/diag"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

func strVal(s string) value.Value { return value.Str(s) }
func intVal(i int64) value.Value  { return value.I64(i) }
func idVal(id value.ID) value.Value { return value.UUIDValue(id) }

// idOf pulls the "id" field out of a node/edge result's ObjectValue.
func idOf(t *testing.T, v value.Value) value.ID {
	t.Helper()
	obj, ok := v.AsObject()
	require.True(t, ok, "expected an object result, got %s", v.TypeName())
	idField, ok := obj["id"]
	require.True(t, ok, "expected an \"id\" field in result")
	id, ok := idField.AsID()
	require.True(t, ok)
	return id
}

const socialSource = `
N::Person::1 {
	name: String,
	age: I64,
}

E::Knows::1 {
	From: Person,
	To: Person,
	since: I64,
}

QUERY createPerson(name: String, age: I64) =>
	p <- AddN<Person>({name: name, age: age})
	RETURN p

QUERY getPerson(id: ID) =>
	p <- N_FROM_ID<Person>(id)
	RETURN p

QUERY befriend(from: ID, to: ID, since: I64) =>
	e <- AddE<Knows>(from: N_FROM_ID<Person>(from), to: N_FROM_ID<Person>(to), {since: since})
	RETURN e

QUERY friendsOf(id: ID) =>
	friends <- N_FROM_ID<Person>(id)::OUT<Knows>
	RETURN friends

QUERY renamePerson(id: ID, name: String) =>
	p <- N_FROM_ID<Person>(id)::UPDATE({name: name})
	RETURN p

QUERY deletePerson(id: ID) =>
	N_FROM_ID<Person>(id)::DROP
	RETURN id
`

func TestLoadValidSource(t *testing.T) {
	sch, diags, err := Load(socialSource)
	require.NoError(t, err)
	assert.False(t, diag.HasErrors(diags))
	require.NotNil(t, sch)

	_, ok := sch.Raw.Node("Person")
	assert.True(t, ok)
	_, ok = sch.Raw.Edge("Knows")
	assert.True(t, ok)
	assert.Len(t, sch.resolved, 6)
}

func TestLoadReportsParseErrors(t *testing.T) {
	_, diags, err := Load(`N::Person::1 { name: String`)
	require.Error(t, err)
	assert.True(t, diag.HasErrors(diags))
}

func TestLoadReportsSemanticErrors(t *testing.T) {
	_, diags, err := Load(`
QUERY lookup(id: ID) =>
	p <- N_FROM_ID<Ghost>(id)
	RETURN p
`)
	require.Error(t, err)
	assert.True(t, diag.HasErrors(diags))
}

func openSocial(t *testing.T) *Database {
	t.Helper()
	db, diags, err := Open(socialSource, OpenOptions{KV: kv.Options{InMemory: true}})
	require.NoError(t, err)
	require.False(t, diag.HasErrors(diags))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenRegistersEveryCompiledQuery(t *testing.T) {
	db := openSocial(t)
	for _, name := range []string{"createPerson", "getPerson", "befriend", "friendsOf", "renamePerson", "deletePerson"} {
		assert.Contains(t, db.Queries, name)
	}
}

func TestCreateAndFetchPerson(t *testing.T) {
	db := openSocial(t)

	create := db.Queries["createPerson"]
	require.True(t, create.Mutating)

	txn, err := db.Env.BeginWrite()
	require.NoError(t, err)
	result, err := create.Handle(Params{"name": strVal("Ada"), "age": intVal(36)}, txn)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	id := idOf(t, result)

	get := db.Queries["getPerson"]
	require.False(t, get.Mutating)
	rtxn := db.Env.BeginRead()
	defer rtxn.Discard()
	fetched, err := get.Handle(Params{"id": idVal(id)}, rtxn)
	require.NoError(t, err)

	fields := fetched.ToJSON()
	assert.NotNil(t, fields)
}

func TestBefriendAndTraverse(t *testing.T) {
	db := openSocial(t)

	create := db.Queries["createPerson"]
	wtxn, err := db.Env.BeginWrite()
	require.NoError(t, err)
	ada, err := create.Handle(Params{"name": strVal("Ada"), "age": intVal(36)}, wtxn)
	require.NoError(t, err)
	grace, err := create.Handle(Params{"name": strVal("Grace"), "age": intVal(40)}, wtxn)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())

	adaID := idOf(t, ada)
	graceID := idOf(t, grace)

	befriend := db.Queries["befriend"]
	wtxn2, err := db.Env.BeginWrite()
	require.NoError(t, err)
	_, err = befriend.Handle(Params{"from": idVal(adaID), "to": idVal(graceID), "since": intVal(2020)}, wtxn2)
	require.NoError(t, err)
	require.NoError(t, wtxn2.Commit())

	friendsOf := db.Queries["friendsOf"]
	rtxn := db.Env.BeginRead()
	defer rtxn.Discard()
	friends, err := friendsOf.Handle(Params{"id": idVal(adaID)}, rtxn)
	require.NoError(t, err)
	assert.NotNil(t, friends.ToJSON())
}

func TestDropRemovesNode(t *testing.T) {
	db := openSocial(t)

	create := db.Queries["createPerson"]
	wtxn, err := db.Env.BeginWrite()
	require.NoError(t, err)
	person, err := create.Handle(Params{"name": strVal("Temp"), "age": intVal(1)}, wtxn)
	require.NoError(t, err)
	require.NoError(t, wtxn.Commit())
	id := idOf(t, person)

	del := db.Queries["deletePerson"]
	require.True(t, del.Mutating)
	wtxn2, err := db.Env.BeginWrite()
	require.NoError(t, err)
	_, err = del.Handle(Params{"id": idVal(id)}, wtxn2)
	require.NoError(t, err)
	require.NoError(t, wtxn2.Commit())
}
