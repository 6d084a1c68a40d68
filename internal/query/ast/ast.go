// Package ast defines the statement and expression trees produced by the
// parser and consumed by the exec package. Each Statement knows whether it
// mutates table state and whether it produces rows, so the db layer can
// decide transaction and result shape without a type switch of its own.
package ast

import (
	"fmt"

	"github.com/embeddb/embeddb/internal/query/lexer"
)

// Statement is any top-level parsed instruction.
type Statement interface {
	Mutates() bool
	ReturnsRows() bool
	iStatement()
}

// Expression is anything that can appear in a WHERE clause or a VALUES list.
type Expression interface {
	iExpression()
}

// BinaryOperation is an expression with two operands and an infix operator
// (=, !=, <, <=, >, >=, AND, OR).
type BinaryOperation struct {
	Left     Expression
	Right    Expression
	Operator string
}

// Ident is a reference to a column name.
type Ident struct {
	Value string
}

// Placeholder is a :name bind parameter, resolved against the argument map
// supplied at execution time.
type Placeholder struct {
	Name string
}

// BasicLiteral is a string, number, boolean, or null literal as scanned; Kind
// records which lexical category produced it so the executor knows how to
// coerce it into a value.Value.
type BasicLiteral struct {
	Value string
	Kind  lexer.Kind
}

func (*BinaryOperation) iExpression() {}
func (*Ident) iExpression()           {}
func (*Placeholder) iExpression()     {}
func (*BasicLiteral) iExpression()    {}

func (o *BinaryOperation) String() string {
	return fmt.Sprintf("(%s %s %s)", o.Left, o.Operator, o.Right)
}

// IdentLiteralOperation returns op's operands as (column, literal) regardless
// of which side of the operator each appeared on, or (nil, nil) if op isn't
// shaped that way.
func IdentLiteralOperation(op *BinaryOperation) (*Ident, Expression) {
	if leftIdent, ok := op.Left.(*Ident); ok {
		if isValueExpr(op.Right) {
			return leftIdent, op.Right
		}
	}
	if rightIdent, ok := op.Right.(*Ident); ok {
		if isValueExpr(op.Left) {
			return rightIdent, op.Left
		}
	}
	return nil, nil
}

func isValueExpr(e Expression) bool {
	switch e.(type) {
	case *BasicLiteral, *Placeholder:
		return true
	default:
		return false
	}
}

// ColumnDefinition is one column of a CREATE TABLE statement.
type ColumnDefinition struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// CreateTableStatement represents CREATE TABLE [IF NOT EXISTS] name (...).
type CreateTableStatement struct {
	TableName   string
	IfNotExists bool
	Columns     []ColumnDefinition
}

func (*CreateTableStatement) iStatement()      {}
func (*CreateTableStatement) Mutates() bool    { return true }
func (*CreateTableStatement) ReturnsRows() bool { return false }

// DropTableStatement represents DROP TABLE [IF EXISTS] name.
type DropTableStatement struct {
	TableName string
	IfExists  bool
}

func (*DropTableStatement) iStatement()       {}
func (*DropTableStatement) Mutates() bool     { return true }
func (*DropTableStatement) ReturnsRows() bool { return false }

// OnConflict is the clause's resolution when a value list collides with an
// existing key.
type OnConflict int

const (
	// OnConflictAbort is the default: fail the statement.
	OnConflictAbort OnConflict = iota
	// OnConflictDoNothing silently skips the colliding row.
	OnConflictDoNothing
)

// ValueSet maps column name to the expression supplying its value for one
// inserted row.
type ValueSet map[string]Expression

// InsertStatement represents INSERT INTO table (...) VALUES (...) [ON
// CONFLICT DO NOTHING] [RETURNING ...].
type InsertStatement struct {
	Table      string
	Values     []ValueSet
	Returning  []string
	OnConflict OnConflict
}

func (*InsertStatement) iStatement()      {}
func (*InsertStatement) Mutates() bool    { return true }
func (s *InsertStatement) ReturnsRows() bool { return len(s.Returning) > 0 }

// OrderByTerm is one column of an ORDER BY clause.
type OrderByTerm struct {
	Column     string
	Descending bool
}

// TableAlias is a FROM clause entry: a table name and its optional local
// alias (alias equals the name when no AS clause was given).
type TableAlias struct {
	Name  string
	Alias string
}

// SelectStatement represents SELECT columns FROM tables [WHERE ...] [ORDER
// BY ...].
type SelectStatement struct {
	From    []TableAlias
	Columns []string
	Filter  Expression
	OrderBy []OrderByTerm
}

func (*SelectStatement) iStatement()       {}
func (*SelectStatement) Mutates() bool     { return false }
func (*SelectStatement) ReturnsRows() bool { return true }

func (s *SelectStatement) String() string {
	return fmt.Sprintf("SELECT %v FROM %v WHERE %v ORDER BY %v", s.Columns, s.From, s.Filter, s.OrderBy)
}

// BeginStatement starts an explicit transaction.
type BeginStatement struct{}

// CommitStatement commits the current transaction.
type CommitStatement struct{}

// RollbackStatement aborts the current transaction.
type RollbackStatement struct{}

func (*BeginStatement) iStatement()        {}
func (*BeginStatement) Mutates() bool      { return false }
func (*BeginStatement) ReturnsRows() bool  { return false }
func (*CommitStatement) iStatement()       {}
func (*CommitStatement) Mutates() bool     { return false }
func (*CommitStatement) ReturnsRows() bool { return false }
func (*RollbackStatement) iStatement()       {}
func (*RollbackStatement) Mutates() bool     { return false }
func (*RollbackStatement) ReturnsRows() bool { return false }
