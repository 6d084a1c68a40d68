// Package driver adapts embeddb's db.DB to database/sql. There is no wire
// protocol: a connection is a direct handle onto an already-open db.DB, so
// Prepare/Exec/Query call straight into the embedded engine.
//
// Each driver.Conn opens its own db.DB, and db.Open takes an exclusive file
// lock, so a *sql.DB pointed at one data file should call
// SetMaxOpenConns(1); a second concurrent connection to the same file fails
// with pager.ErrAlreadyLocked rather than blocking.
package driver

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/embeddb/embeddb/config"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/internal/query/exec"
	"github.com/embeddb/embeddb/internal/value"
)

func init() {
	sql.Register("embeddb", &EmbedDBDriver{})
}

// EmbedDBDriver implements driver.Driver. The dsn is the data file path.
type EmbedDBDriver struct{}

// EmbedDBConnection implements driver.Conn over one open db.DB.
type EmbedDBConnection struct {
	database *db.DB
	tx       *db.Tx
}

// EmbedDBStmt implements driver.Stmt.
type EmbedDBStmt struct {
	conn *EmbedDBConnection
	stmt *db.Statement
}

// EmbedDBTx implements driver.Tx.
type EmbedDBTx struct {
	conn *EmbedDBConnection
}

// EmbedDBResult implements driver.Result.
type EmbedDBResult struct {
	rowsAffected int64
}

// EmbedDBRows implements driver.Rows over a materialized exec.Result.
type EmbedDBRows struct {
	columns []string
	rows    [][]value.Value
	pos     int
}

// Open opens the database file named by dsn with default pool sizing.
func (d *EmbedDBDriver) Open(dsn string) (driver.Conn, error) {
	cfg := config.Default()
	cfg.DataFile = dsn
	database, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &EmbedDBConnection{database: database}, nil
}

// Prepare parses text into a reusable statement.
func (c *EmbedDBConnection) Prepare(text string) (driver.Stmt, error) {
	stmt, err := c.database.Prepare(text)
	if err != nil {
		return nil, err
	}
	return &EmbedDBStmt{conn: c, stmt: stmt}, nil
}

// Begin starts an explicit transaction, held for the connection's lifetime
// until Commit or Rollback.
func (c *EmbedDBConnection) Begin() (driver.Tx, error) {
	if c.tx != nil {
		return nil, db.ErrTransactionInUse
	}
	c.tx = c.database.Begin()
	return &EmbedDBTx{conn: c}, nil
}

// Close closes the underlying database.
func (c *EmbedDBConnection) Close() error {
	return c.database.Close()
}

func (t *EmbedDBTx) Commit() error {
	defer func() { t.conn.tx = nil }()
	return t.conn.tx.Commit()
}

func (t *EmbedDBTx) Rollback() error {
	defer func() { t.conn.tx = nil }()
	return t.conn.tx.Rollback()
}

// Close is a no-op; the underlying db.Statement has no resources to
// release independent of the connection.
func (s *EmbedDBStmt) Close() error { return nil }

// NumInput returns -1: the driver doesn't pre-count :name placeholders, so
// database/sql skips its own argument-count check.
func (s *EmbedDBStmt) NumInput() int { return -1 }

// Exec runs a mutating statement. The positional args are not bound (see
// positionalArgs), so a statement with :name placeholders fails with
// exec.ErrUnboundPlaceholder.
func (s *EmbedDBStmt) Exec(args []driver.Value) (driver.Result, error) {
	res, err := s.conn.database.Exec(s.stmt, positionalArgs(args), s.conn.tx)
	if err != nil {
		return nil, err
	}
	return &EmbedDBResult{rowsAffected: int64(res.RowsAffected)}, nil
}

// Query runs a SELECT and returns its rows.
func (s *EmbedDBStmt) Query(args []driver.Value) (driver.Rows, error) {
	res, err := s.conn.database.Query(s.stmt, positionalArgs(args))
	if err != nil {
		return nil, err
	}
	return &EmbedDBRows{columns: res.Columns, rows: res.Rows}, nil
}

func (r *EmbedDBResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("embeddb: LastInsertId is not supported")
}

func (r *EmbedDBResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

func (r *EmbedDBRows) Columns() []string { return r.columns }

func (r *EmbedDBRows) Close() error { return nil }

// Next fills dest with the next row's values, converted to database/sql's
// driver.Value representation.
func (r *EmbedDBRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	for i, v := range row {
		dv, err := toDriverValue(v)
		if err != nil {
			return err
		}
		dest[i] = dv
	}
	return nil
}

// positionalArgs is a placeholder for positional-to-named argument binding.
// embeddb's :name placeholders are intended to be used through db.DB
// directly with exec.Args; database/sql's positional driver.Value slice
// carries no names to bind them to.
func positionalArgs([]driver.Value) exec.Args {
	return exec.Args{}
}

func toDriverValue(v value.Value) (driver.Value, error) {
	switch v.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindBool:
		b, _ := v.Bool()
		return b, nil
	case value.KindString:
		s, _ := v.Str()
		return s, nil
	case value.KindBytes:
		b, _ := v.Bytes()
		return b, nil
	case value.KindF32:
		f, _ := v.F32()
		return float64(f), nil
	case value.KindF64:
		f, _ := v.F64()
		return f, nil
	case value.KindI8, value.KindI16, value.KindI32, value.KindI64:
		i, _ := v.Int()
		return i, nil
	case value.KindU8, value.KindU16, value.KindU32, value.KindU64:
		u, _ := v.Uint()
		return int64(u), nil
	default:
		return nil, fmt.Errorf("embeddb: value kind %v has no database/sql representation", v.Kind())
	}
}

var (
	_ driver.Driver = (*EmbedDBDriver)(nil)
	_ driver.Conn   = (*EmbedDBConnection)(nil)
	_ driver.Stmt   = (*EmbedDBStmt)(nil)
	_ driver.Tx     = (*EmbedDBTx)(nil)
	_ driver.Result = (*EmbedDBResult)(nil)
	_ driver.Rows   = (*EmbedDBRows)(nil)
)
