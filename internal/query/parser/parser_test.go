package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embeddb/embeddb/internal/query/ast"
)

func TestParseCreateTable(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("CREATE TABLE IF NOT EXISTS users (id integer PRIMARY KEY, name text)")
	r.NoError(err)
	ct, ok := stmt.(*ast.CreateTableStatement)
	r.True(ok)
	r.True(ct.IfNotExists)
	r.Equal("users", ct.TableName)
	r.Len(ct.Columns, 2)
	r.Equal("id", ct.Columns[0].Name)
	r.True(ct.Columns[0].PrimaryKey)
	r.False(ct.Columns[1].PrimaryKey)
}

func TestParseDropTable(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("DROP TABLE IF EXISTS users")
	r.NoError(err)
	dt, ok := stmt.(*ast.DropTableStatement)
	r.True(ok)
	r.True(dt.IfExists)
	r.Equal("users", dt.TableName)
}

func TestParseInsert(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("INSERT INTO users (id, name) VALUES (1, 'alice')")
	r.NoError(err)
	ins, ok := stmt.(*ast.InsertStatement)
	r.True(ok)
	r.Equal("users", ins.Table)
	r.Len(ins.Values, 1)
	lit, ok := ins.Values[0]["name"].(*ast.BasicLiteral)
	r.True(ok)
	r.Equal("'alice'", lit.Value)
}

func TestParseInsertWithPlaceholderAndOnConflict(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("INSERT INTO users (id, name) VALUES (:id, :name) ON CONFLICT DO NOTHING")
	r.NoError(err)
	ins, ok := stmt.(*ast.InsertStatement)
	r.True(ok)
	r.Equal(ast.OnConflictDoNothing, ins.OnConflict)
	ph, ok := ins.Values[0]["id"].(*ast.Placeholder)
	r.True(ok)
	r.Equal("id", ph.Name)
}

func TestParseSelectWithWhereAndOrderBy(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("SELECT id, name FROM users WHERE id = 1 AND name != 'bob' ORDER BY name DESC")
	r.NoError(err)
	sel, ok := stmt.(*ast.SelectStatement)
	r.True(ok)
	r.Equal([]string{"id", "name"}, sel.Columns)
	r.Len(sel.From, 1)
	r.Equal("users", sel.From[0].Name)

	op, ok := sel.Filter.(*ast.BinaryOperation)
	r.True(ok)
	r.Equal("AND", op.Operator)

	r.Len(sel.OrderBy, 1)
	r.Equal("name", sel.OrderBy[0].Column)
	r.True(sel.OrderBy[0].Descending)
}

func TestParseSelectStar(t *testing.T) {
	r := require.New(t)
	stmt, err := ParseStatement("SELECT * FROM users")
	r.NoError(err)
	sel := stmt.(*ast.SelectStatement)
	r.Equal([]string{"*"}, sel.Columns)
}

func TestParseTransactionStatements(t *testing.T) {
	r := require.New(t)

	s, err := ParseStatement("BEGIN")
	r.NoError(err)
	_, ok := s.(*ast.BeginStatement)
	r.True(ok)

	s, err = ParseStatement("COMMIT")
	r.NoError(err)
	_, ok = s.(*ast.CommitStatement)
	r.True(ok)

	s, err = ParseStatement("ROLLBACK")
	r.NoError(err)
	_, ok = s.(*ast.RollbackStatement)
	r.True(ok)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	r := require.New(t)
	_, err := ParseStatement("SELECT * FROM users; DROP TABLE users")
	r.Error(err)
}

func TestParseRejectsUnknownStatement(t *testing.T) {
	r := require.New(t)
	_, err := ParseStatement("FROBNICATE users")
	r.Error(err)
}
