package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embeddb/embeddb/internal/query/parser"
	"github.com/embeddb/embeddb/internal/table"
	"github.com/embeddb/embeddb/internal/value"
)

func mustExec(t *testing.T, store *table.Store, sql string, args Args) Result {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	require.NoError(t, err)
	res, err := Execute(store, stmt, args)
	require.NoError(t, err)
	return res
}

func setupUsers(t *testing.T) *table.Store {
	t.Helper()
	store := table.NewStore(nil)
	mustExec(t, store, "CREATE TABLE users (id integer PRIMARY KEY, name text, age integer)", nil)
	mustExec(t, store, "INSERT INTO users (id, name, age) VALUES (1, 'alice', 30)", nil)
	mustExec(t, store, "INSERT INTO users (id, name, age) VALUES (2, 'bob', 25)", nil)
	mustExec(t, store, "INSERT INTO users (id, name, age) VALUES (3, 'carol', 40)", nil)
	return store
}

func TestCreateTableAndInsert(t *testing.T) {
	store := setupUsers(t)
	tb, err := store.Table("users")
	require.NoError(t, err)
	require.Equal(t, 3, tb.Len())
}

func TestSelectAllColumns(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	res := mustExec(t, store, "SELECT * FROM users", nil)
	r.Equal([]string{"id", "name", "age"}, res.Columns)
	r.Len(res.Rows, 3)
}

func TestSelectWithWhere(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	res := mustExec(t, store, "SELECT name FROM users WHERE age > 28", nil)
	r.Len(res.Rows, 2)
	names := []string{}
	for _, row := range res.Rows {
		s, _ := row[0].Str()
		names = append(names, s)
	}
	r.ElementsMatch([]string{"alice", "carol"}, names)
}

func TestSelectOrderByDesc(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	res := mustExec(t, store, "SELECT name FROM users ORDER BY age DESC", nil)
	r.Len(res.Rows, 3)
	first, _ := res.Rows[0][0].Str()
	r.Equal("carol", first)
}

func TestInsertWithPlaceholder(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	stmt, err := parser.ParseStatement("INSERT INTO users (id, name, age) VALUES (:idv, :name, :age)")
	r.NoError(err)
	_, err = Execute(store, stmt, Args{
		"idv":  value.NewI64(4),
		"name": value.NewString("dave"),
		"age":  value.NewI64(22),
	})
	r.NoError(err)

	tb, err := store.Table("users")
	r.NoError(err)
	r.Equal(4, tb.Len())
}

func TestSelectWithRowIDAugmentsColumn(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	res := mustExec(t, store, "SELECT rowid, name FROM users", nil)
	r.Equal([]string{"rowid", "name"}, res.Columns)
	r.Len(res.Rows, 3)

	// rowid is assigned in insertion order, independent of the declared
	// primary key column id, which here happens to match insertion order too.
	for i, row := range res.Rows {
		id, ok := row[0].Uint()
		r.True(ok)
		r.EqualValues(i, id)
	}
}

func TestSelectOrderByRowID(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	res := mustExec(t, store, "SELECT rowid, name FROM users ORDER BY rowid DESC", nil)
	r.Len(res.Rows, 3)
	first, ok := res.Rows[0][0].Uint()
	r.True(ok)
	r.EqualValues(2, first)
}

func TestDropTable(t *testing.T) {
	r := require.New(t)
	store := setupUsers(t)
	stmt, err := parser.ParseStatement("DROP TABLE users")
	r.NoError(err)
	_, err = Execute(store, stmt, nil)
	r.NoError(err)
	_, err = store.Table("users")
	r.ErrorIs(err, table.ErrTableNotFound)
}
