// Package db is embeddb's top-level library facade: it owns the page pool
// and the table store, and offers Prepare/Exec/Query plus explicit
// transactions. Exactly one writer may hold the database at a time,
// enforced through internal/pager's ExclusiveAccess.
package db

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/embeddb/embeddb/config"
	"github.com/embeddb/embeddb/internal/page"
	"github.com/embeddb/embeddb/internal/pager"
	"github.com/embeddb/embeddb/internal/query/ast"
	"github.com/embeddb/embeddb/internal/query/exec"
	"github.com/embeddb/embeddb/internal/query/parser"
	"github.com/embeddb/embeddb/internal/table"
)

// Err is db's sentinel error kind.
type Err string

func (e Err) Error() string { return string(e) }

const (
	ErrNoActiveTransaction Err = "db: no active transaction"
	ErrTransactionInUse    Err = "db: transaction already active on this connection"
)

// catalogRoot is the fixed page ID the encoded table.Store chain starts at.
const catalogRoot = 0

// DB is an open embeddb database file.
type DB struct {
	mu     sync.Mutex
	pager  *pager.Pager
	access *pager.ExclusiveAccess
	store  *table.Store
	log    *logrus.Logger
}

// Open opens (creating if necessary) the database file named by cfg.DataFile.
func Open(cfg config.Config) (*DB, error) {
	log := cfg.Logger()
	p, err := pager.Open(cfg.DataFile, cfg.PagerCapacity, pager.ModeWrite, log)
	if err != nil {
		return nil, err
	}
	store, err := loadStore(p, log)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &DB{
		pager:  p,
		access: pager.NewExclusiveAccess(p),
		store:  store,
		log:    log,
	}, nil
}

// Close flushes and releases the underlying file.
func (d *DB) Close() error {
	return d.pager.Close()
}

// Tx is an open transaction. Every DB method that mutates state must run
// inside one, acquired via Begin and released via Commit or Rollback.
type Tx struct {
	id   uuid.UUID
	db   *DB
	done bool
}

// Begin acquires exclusive write access to the database for the life of
// the returned Tx.
func (d *DB) Begin() *Tx {
	id := uuid.New()
	d.access.Acquire(id, pager.ModeWrite)
	return &Tx{id: id, db: d}
}

// Commit persists the current table store to disk and releases the
// transaction's hold on the database.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrNoActiveTransaction
	}
	tx.done = true
	defer tx.db.access.Release(tx.id)
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if err := persistStore(tx.db.pager, tx.db.store); err != nil {
		return err
	}
	return tx.db.pager.Flush()
}

// Rollback discards any in-memory changes made during the transaction by
// reloading the store from what's on disk, and releases the transaction.
func (tx *Tx) Rollback() error {
	if tx.done {
		return ErrNoActiveTransaction
	}
	tx.done = true
	defer tx.db.access.Release(tx.id)
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	store, err := loadStore(tx.db.pager, tx.db.log)
	if err != nil {
		return err
	}
	tx.db.store = store
	return nil
}

// Statement is a parsed, not-yet-bound query.
type Statement struct {
	stmt ast.Statement
}

// Prepare parses sql into a reusable Statement.
func (d *DB) Prepare(sql string) (*Statement, error) {
	stmt, err := parser.ParseStatement(sql)
	if err != nil {
		return nil, err
	}
	return &Statement{stmt: stmt}, nil
}

// Mutates reports whether executing this statement changes table state.
func (s *Statement) Mutates() bool { return s.stmt.Mutates() }

// ReturnsRows reports whether executing this statement produces a result
// set.
func (s *Statement) ReturnsRows() bool { return s.stmt.ReturnsRows() }

// Exec runs a mutating statement to completion, auto-committing unless tx
// is non-nil (in which case the caller controls Commit/Rollback).
func (d *DB) Exec(s *Statement, args exec.Args, tx *Tx) (exec.Result, error) {
	owned := tx == nil
	if owned {
		tx = d.Begin()
	}

	d.mu.Lock()
	res, err := exec.Execute(d.store, s.stmt, args)
	d.mu.Unlock()

	if !owned {
		return res, err
	}
	if err != nil {
		_ = tx.Rollback()
		return res, err
	}
	return res, tx.Commit()
}

// Query runs a read-only (SELECT) statement and returns its rows. It never
// opens an implicit write transaction.
func (d *DB) Query(s *Statement, args exec.Args) (exec.Result, error) {
	if s.stmt.Mutates() || !s.stmt.ReturnsRows() {
		return exec.Result{}, exec.ErrNotARow
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return exec.Execute(d.store, s.stmt, args)
}

// --- catalog persistence --------------------------------------------------

func loadStore(p *pager.Pager, log *logrus.Logger) (*table.Store, error) {
	if p.PageCount() == 0 {
		return table.NewStore(log), nil
	}

	var buf []byte
	id := uint64(catalogRoot)
	for {
		pg, err := p.Get(id)
		if err != nil {
			return nil, err
		}
		if pg.CellCount() > 0 {
			cell, err := pg.GetCell(0)
			if err != nil {
				p.Unpin(id)
				return nil, err
			}
			buf = append(buf, cell...)
		}
		next := pg.Header.OverflowPageID
		p.Unpin(id)
		if next == 0 {
			break
		}
		id = next
	}
	if len(buf) == 0 {
		return table.NewStore(log), nil
	}
	return table.Decode(buf, log)
}

func persistStore(p *pager.Pager, store *table.Store) error {
	raw := store.Encode()
	const chunkSize = page.BufferSize - page.CellPointerSize

	var ids []uint64
	for offset := 0; offset < len(raw) || len(ids) == 0; offset += chunkSize {
		ids = append(ids, uint64(len(ids)))
		if offset+chunkSize >= len(raw) {
			break
		}
	}

	for i, id := range ids {
		var pg *page.Page
		var err error
		if id < p.PageCount() {
			pg, err = p.Get(id)
		} else {
			pg, err = p.Allocate(page.KindData)
		}
		if err != nil {
			return err
		}

		if pg.CellCount() > 0 {
			if err := pg.RemoveCell(0); err != nil {
				p.Unpin(id)
				return err
			}
		}

		start := i * chunkSize
		end := start + chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		if err := pg.InsertCell(0, raw[start:end]); err != nil {
			p.Unpin(id)
			return err
		}

		if i+1 < len(ids) {
			pg.Header.OverflowPageID = ids[i+1]
		} else {
			pg.Header.OverflowPageID = 0
		}
		p.Unpin(id)
	}

	return nil
}
