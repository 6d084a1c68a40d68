// Package exec evaluates a parsed statement against a table.Store. SELECT
// statements build a small pipeline of RowSource stages (scan, filter,
// sort, project); everything else runs as a single direct effect against the
// store. The scan stage copies all of the table's rows into a slice when it
// is built. Of the stages after it, Sort is the only one that materializes
// its input before producing anything, since an ordering key can't be known
// until every row has been seen.
package exec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/embeddb/embeddb/internal/query/ast"
	"github.com/embeddb/embeddb/internal/table"
	"github.com/embeddb/embeddb/internal/value"
)

// Err is exec's sentinel error kind.
type Err string

func (e Err) Error() string { return string(e) }

const (
	ErrUnknownColumn      Err = "exec: unknown column"
	ErrUnboundPlaceholder Err = "exec: unbound placeholder"
	ErrNotARow            Err = "exec: statement does not produce rows"
)

// Result is the outcome of executing one statement.
type Result struct {
	Columns      []string
	Rows         [][]value.Value
	RowsAffected int
}

// Args binds placeholder names (without the leading ':') to values.
type Args map[string]value.Value

// Execute runs stmt against store, using args to resolve any :name
// placeholders referenced by the statement.
func Execute(store *table.Store, stmt ast.Statement, args Args) (Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		return execCreateTable(store, s)
	case *ast.DropTableStatement:
		return execDropTable(store, s)
	case *ast.InsertStatement:
		return execInsert(store, s, args)
	case *ast.SelectStatement:
		return execSelect(store, s, args)
	case *ast.BeginStatement, *ast.CommitStatement, *ast.RollbackStatement:
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("exec: unsupported statement %T", stmt)
	}
}

func execCreateTable(store *table.Store, s *ast.CreateTableStatement) (Result, error) {
	schema := table.Schema{}
	for _, c := range s.Columns {
		kind, err := columnKind(c.Type)
		if err != nil {
			return Result{}, err
		}
		schema.Columns = append(schema.Columns, table.ColumnDef{Name: c.Name, Kind: kind})
		if c.PrimaryKey {
			schema.PrimaryKey = c.Name
		}
	}
	_, err := store.CreateTable(s.TableName, schema, s.IfNotExists)
	return Result{}, err
}

func execDropTable(store *table.Store, s *ast.DropTableStatement) (Result, error) {
	err := store.DestroyTable(s.TableName)
	if err != nil && s.IfExists && err == table.ErrTableNotFound {
		return Result{}, nil
	}
	return Result{}, err
}

func execInsert(store *table.Store, s *ast.InsertStatement, args Args) (Result, error) {
	t, err := store.Table(s.Table)
	if err != nil {
		return Result{}, err
	}

	rows := make([][]value.Value, 0, len(s.Values))
	for _, vs := range s.Values {
		row := make([]value.Value, len(t.Schema.Columns))
		for i, col := range t.Schema.Columns {
			expr, ok := vs[col.Name]
			if !ok {
				row[i] = value.NewNull()
				continue
			}
			v, err := evalLiteral(expr, args, col.Kind)
			if err != nil {
				return Result{}, err
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	policy := table.ConflictAbort
	if s.OnConflict == ast.OnConflictDoNothing {
		policy = table.ConflictNothing
	}
	n, err := t.InsertRows(rows, policy)
	if err != nil {
		return Result{}, err
	}
	res := Result{RowsAffected: n}
	if len(s.Returning) > 0 {
		res.Columns = s.Returning
	}
	return res, nil
}

func execSelect(store *table.Store, s *ast.SelectStatement, args Args) (Result, error) {
	if len(s.From) != 1 {
		return Result{}, fmt.Errorf("exec: joins are not supported")
	}
	t, err := store.Table(s.From[0].Name)
	if err != nil {
		return Result{}, err
	}

	columns := s.Columns
	if len(columns) == 1 && columns[0] == "*" {
		columns = make([]string, len(t.Schema.Columns))
		for i, c := range t.Schema.Columns {
			columns[i] = c.Name
		}
	}

	withRowID := containsRowIDColumn(columns)
	for _, term := range s.OrderBy {
		if term.Column == table.RowIDColumn {
			withRowID = true
		}
	}

	var source RowSource = newTableScan(t, withRowID)

	if s.Filter != nil {
		pred, err := compilePredicate(s.Filter, t.Schema, args)
		if err != nil {
			return Result{}, err
		}
		source = newFilter(source, pred)
	}

	if len(s.OrderBy) > 0 {
		sortIdx := make([]int, len(s.OrderBy))
		desc := make([]bool, len(s.OrderBy))
		for i, term := range s.OrderBy {
			idx, err := scanColumnIndex(t, term.Column)
			if err != nil {
				return Result{}, err
			}
			sortIdx[i] = idx
			desc[i] = term.Descending
		}
		sorted, err := newSort(source, sortIdx, desc)
		if err != nil {
			return Result{}, err
		}
		source = sorted
	}

	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, err := scanColumnIndex(t, name)
		if err != nil {
			return Result{}, err
		}
		indices[i] = idx
	}
	source = newProject(source, indices)

	var rows [][]value.Value
	for {
		row, ok, err := source.Next()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return Result{Columns: columns, Rows: rows}, nil
}

func containsRowIDColumn(columns []string) bool {
	for _, c := range columns {
		if c == table.RowIDColumn {
			return true
		}
	}
	return false
}

// scanColumnIndex resolves name to a projection index against t's scanned
// rows, treating the reserved rowid column as the synthetic trailing
// column a with_rowid scan appends after every declared column.
func scanColumnIndex(t *table.Table, name string) (int, error) {
	if name == table.RowIDColumn {
		return len(t.Schema.Columns), nil
	}
	idx := t.Schema.ColumnIndex(name)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return idx, nil
}

func columnKind(typeName string) (value.Kind, error) {
	switch strings.ToLower(typeName) {
	case "integer", "int", "i64":
		return value.KindI64, nil
	case "u64":
		return value.KindU64, nil
	case "text", "string", "varchar":
		return value.KindString, nil
	case "bool", "boolean":
		return value.KindBool, nil
	case "real", "float", "f64", "double":
		return value.KindF64, nil
	case "blob", "bytes":
		return value.KindBytes, nil
	default:
		return 0, fmt.Errorf("exec: unknown column type %q", typeName)
	}
}

func evalLiteral(expr ast.Expression, args Args, kind value.Kind) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.Placeholder:
		v, ok := args[e.Name]
		if !ok {
			return value.Value{}, fmt.Errorf("%w: %s", ErrUnboundPlaceholder, e.Name)
		}
		return v, nil
	case *ast.BasicLiteral:
		return literalValue(e, kind)
	default:
		return value.Value{}, fmt.Errorf("exec: expression %T is not a constant value", expr)
	}
}

func literalValue(lit *ast.BasicLiteral, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.KindString:
		return value.NewString(unquote(lit.Value)), nil
	case value.KindI64:
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewI64(n), nil
	case value.KindU64:
		n, err := strconv.ParseUint(lit.Value, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewU64(n), nil
	case value.KindBool:
		return value.NewBool(strings.EqualFold(lit.Value, "true")), nil
	case value.KindF64:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewF64(f)
	case value.KindBytes:
		return value.NewBytes([]byte(unquote(lit.Value))), nil
	default:
		return value.Value{}, fmt.Errorf("exec: unsupported column kind %v", kind)
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// --- predicates ---------------------------------------------------------

type predicate func(table.Row) (bool, error)

func compilePredicate(expr ast.Expression, schema table.Schema, args Args) (predicate, error) {
	switch e := expr.(type) {
	case *ast.BinaryOperation:
		switch e.Operator {
		case "AND":
			left, err := compilePredicate(e.Left, schema, args)
			if err != nil {
				return nil, err
			}
			right, err := compilePredicate(e.Right, schema, args)
			if err != nil {
				return nil, err
			}
			return func(r table.Row) (bool, error) {
				ok, err := left(r)
				if err != nil || !ok {
					return ok, err
				}
				return right(r)
			}, nil
		case "OR":
			left, err := compilePredicate(e.Left, schema, args)
			if err != nil {
				return nil, err
			}
			right, err := compilePredicate(e.Right, schema, args)
			if err != nil {
				return nil, err
			}
			return func(r table.Row) (bool, error) {
				ok, err := left(r)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
				return right(r)
			}, nil
		default:
			return compileComparison(e, schema, args)
		}
	default:
		return nil, fmt.Errorf("exec: unsupported filter expression %T", expr)
	}
}

func compileComparison(op *ast.BinaryOperation, schema table.Schema, args Args) (predicate, error) {
	ident, valExpr := ast.IdentLiteralOperation(op)
	if ident == nil {
		return nil, fmt.Errorf("exec: comparison must be column against a value")
	}
	idx := schema.ColumnIndex(ident.Value)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, ident.Value)
	}
	kind := schema.Columns[idx].Kind

	flip := op.Left != ast.Expression(ident)
	operator := op.Operator
	if flip {
		operator = flippedOperator(operator)
	}

	var rhs value.Value
	var err error
	switch v := valExpr.(type) {
	case *ast.Placeholder:
		rhs, err = evalLiteral(v, args, kind)
	case *ast.BasicLiteral:
		rhs, err = literalValue(v, kind)
	}
	if err != nil {
		return nil, err
	}

	return func(r table.Row) (bool, error) {
		lhs := r.Values[idx]
		if lhs.IsNull() {
			return false, nil
		}
		cmp := value.Compare(lhs, rhs)
		switch operator {
		case "=":
			return cmp == 0, nil
		case "!=":
			return cmp != 0, nil
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("exec: unsupported operator %q", operator)
		}
	}, nil
}

func flippedOperator(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op
	}
}

// --- RowSource pipeline --------------------------------------------------

// RowSource yields one row at a time until exhausted.
type RowSource interface {
	Next() (row []value.Value, ok bool, err error)
}

// tableScan reads every row of a table in rowid order. When withRowID is
// set it augments each row with a synthetic trailing rowid column, per the
// table_scan(table, with_rowid) operation.
type tableScan struct {
	rows      []table.Row
	withRowID bool
	pos       int
}

func newTableScan(t *table.Table, withRowID bool) *tableScan {
	rows := make([]table.Row, 0, t.Len())
	_ = t.Scan(func(r table.Row) bool { rows = append(rows, r); return true })
	return &tableScan{rows: rows, withRowID: withRowID}
}

func (s *tableScan) Next() ([]value.Value, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	if !s.withRowID {
		return row.Values, true, nil
	}
	out := make([]value.Value, len(row.Values)+1)
	copy(out, row.Values)
	out[len(row.Values)] = row.RowID
	return out, true, nil
}

type filterSource struct {
	source RowSource
	pred   predicate
}

func newFilter(source RowSource, pred predicate) *filterSource {
	return &filterSource{source: source, pred: pred}
}

func (f *filterSource) Next() ([]value.Value, bool, error) {
	for {
		row, ok, err := f.source.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		keep, err := f.pred(table.Row{Values: row})
		if err != nil {
			return nil, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

type projectSource struct {
	source  RowSource
	indices []int
}

func newProject(source RowSource, indices []int) *projectSource {
	return &projectSource{source: source, indices: indices}
}

func (p *projectSource) Next() ([]value.Value, bool, error) {
	row, ok, err := p.source.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]value.Value, len(p.indices))
	for i, idx := range p.indices {
		out[i] = row[idx]
	}
	return out, true, nil
}

// sortSource materializes its entire input before yielding anything, since
// an ordering key requires having seen every row.
type sortSource struct {
	rows [][]value.Value
	pos  int
}

func newSort(source RowSource, indices []int, desc []bool) (*sortSource, error) {
	var rows [][]value.Value
	for {
		row, ok, err := source.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, idx := range indices {
			cmp := value.Compare(rows[i][idx], rows[j][idx])
			if desc[k] {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return &sortSource{rows: rows}, nil
}

func (s *sortSource) Next() ([]value.Value, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}
