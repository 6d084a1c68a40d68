// Package table implements the named-table store above the B-tree layer:
// schemas, rows keyed by an implicit monotonic rowid with an optional
// secondary uniqueness index over a declared primary key column, insert
// conflict handling, and full-table scans. Persistence is a
// rewrite-the-whole-file operation, matching the original engine's
// flush/reload design rather than incremental page-level WAL.
package table

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/embeddb/embeddb/internal/btree"
	"github.com/embeddb/embeddb/internal/codec"
	"github.com/embeddb/embeddb/internal/value"
)

// RowIDColumn is the reserved column name for the implicit auto-increment
// key every table carries even when it also declares its own primary key.
const RowIDColumn = "rowid"

// ConflictPolicy decides what InsertRows does when a row collides with an
// existing key.
type ConflictPolicy int

const (
	// ConflictAbort fails the whole insert and leaves the table unchanged.
	ConflictAbort ConflictPolicy = iota
	// ConflictNothing silently skips the colliding row and continues.
	ConflictNothing
)

// Err is table's sentinel error kind.
type Err string

func (e Err) Error() string { return string(e) }

const (
	ErrTableExists         Err = "table: table already exists"
	ErrTableNotFound       Err = "table: table not found"
	ErrColumnNotFound      Err = "table: column not found"
	ErrRowConflict         Err = "table: row conflicts with an existing key"
	ErrColumnCountMismatch Err = "table: row does not match schema column count"
	ErrReservedColumn      Err = "table: column name is reserved"
	ErrKeyNotOrderable     Err = "table: primary key column's value kind has no total order"
)

// ColumnDef describes one column of a table's schema.
type ColumnDef struct {
	Name string
	Kind value.Kind
}

// Schema is the ordered, stable list of a table's columns. Column position
// is significant and never changes once a table is created.
type Schema struct {
	Columns    []ColumnDef
	PrimaryKey string // column name with a uniqueness constraint, or "" for none
}

// ColumnIndex returns the dense index of name within the schema, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row is one table row: its auto-assigned rowid paired with a value per
// schema column. The rowid is independent of any declared primary key.
type Row struct {
	RowID  value.Value
	Values []value.Value
}

// Table is one named table: its schema and its rows, indexed by rowid in a
// btree.BTree so scans and point lookups share one ordered structure. When
// the schema declares a primary key column, pkIndex is a second btree
// mapping that column's value to its row's rowid, enforcing uniqueness
// independently of row storage order.
type Table struct {
	Name      string
	Schema    Schema
	index     *btree.BTree[value.Value, Row]
	pkIndex   *btree.BTree[value.Value, value.Value]
	nextRowID uint64
	log       *logrus.Logger
}

func newTable(name string, schema Schema, log *logrus.Logger) *Table {
	t := &Table{
		Name:   name,
		Schema: schema,
		index:  btree.New[value.Value, Row](16, value.Compare),
		log:    log,
	}
	if schema.PrimaryKey != "" {
		t.pkIndex = btree.New[value.Value, value.Value](16, value.Compare)
	}
	return t
}

// Store owns every table in one database file.
type Store struct {
	tables map[string]*Table
	order  []string // table creation order, for deterministic listing/reload
	log    *logrus.Logger
}

// NewStore returns an empty Store.
func NewStore(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{tables: make(map[string]*Table), log: log}
}

// CreateTable registers a new table. ifNotExists suppresses ErrTableExists
// when name is already present, returning the existing table instead.
func (s *Store) CreateTable(name string, schema Schema, ifNotExists bool) (*Table, error) {
	if existing, ok := s.tables[name]; ok {
		if ifNotExists {
			return existing, nil
		}
		return nil, ErrTableExists
	}
	for _, c := range schema.Columns {
		if c.Name == RowIDColumn {
			return nil, ErrReservedColumn
		}
	}
	if schema.PrimaryKey != "" {
		idx := schema.ColumnIndex(schema.PrimaryKey)
		if idx < 0 {
			return nil, ErrColumnNotFound
		}
		if !schema.Columns[idx].Kind.Orderable() {
			return nil, ErrKeyNotOrderable
		}
	}

	t := newTable(name, schema, s.log)
	s.tables[name] = t
	s.order = append(s.order, name)
	s.log.WithField("table", name).Info("table: created")
	return t, nil
}

// DestroyTable removes a table and all of its rows.
func (s *Store) DestroyTable(name string) error {
	if _, ok := s.tables[name]; !ok {
		return ErrTableNotFound
	}
	delete(s.tables, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.WithField("table", name).Info("table: destroyed")
	return nil
}

// Table returns the named table.
func (s *Store) Table(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// Tables lists every table name in creation order.
func (s *Store) Tables() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// assignRowID hands out the next monotonic rowid. Rowids are never reused
// within a table's lifetime and are assigned independently of any declared
// primary key.
func (t *Table) assignRowID() value.Value {
	id := t.nextRowID
	t.nextRowID++
	return value.NewU64(id)
}

// pkValue extracts the declared primary key column's value from a row's
// values, reporting false when the table has no primary key.
func (t *Table) pkValue(values []value.Value) (value.Value, bool) {
	if t.Schema.PrimaryKey == "" {
		return value.Value{}, false
	}
	idx := t.Schema.ColumnIndex(t.Schema.PrimaryKey)
	return values[idx], true
}

// InsertRows appends each row in rows to the table, applying policy on any
// primary-key collision. Every inserted row is assigned a fresh rowid
// regardless of whether the table declares a primary key. It returns the
// number of rows actually inserted.
func (t *Table) InsertRows(rows [][]value.Value, policy ConflictPolicy) (int, error) {
	inserted := 0
	var added []Row
	for _, vals := range rows {
		if len(vals) != len(t.Schema.Columns) {
			return inserted, ErrColumnCountMismatch
		}
		pk, hasPK := t.pkValue(vals)
		if hasPK {
			if _, exists := t.pkIndex.Get(pk); exists {
				switch policy {
				case ConflictNothing:
					continue
				default:
					// undo this call's earlier rows so the table is unchanged
					for _, r := range added {
						t.index.Remove(r.RowID)
						if rpk, ok := t.pkValue(r.Values); ok {
							t.pkIndex.Remove(rpk)
						}
					}
					return 0, fmt.Errorf("%w: key %s", ErrRowConflict, pk.String())
				}
			}
		}
		id := t.assignRowID()
		t.index.Insert(id, Row{RowID: id, Values: vals})
		if hasPK {
			t.pkIndex.Insert(pk, id)
		}
		added = append(added, Row{RowID: id, Values: vals})
		inserted++
	}
	return inserted, nil
}

// DeleteRows removes every row for which keep returns false, returning the
// number of rows removed.
func (t *Table) DeleteRows(keep func(Row) bool) (int, error) {
	var toDelete []value.Value
	it := t.index.Iter()
	for {
		k, row, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if !keep(row) {
			toDelete = append(toDelete, k)
		}
	}
	for _, k := range toDelete {
		row, _ := t.index.Get(k)
		if pk, hasPK := t.pkValue(row.Values); hasPK {
			t.pkIndex.Remove(pk)
		}
		t.index.Remove(k)
	}
	return len(toDelete), nil
}

// Scan calls visit once per row in ascending rowid order, stopping early if
// visit returns false.
func (t *Table) Scan(visit func(Row) bool) error {
	it := t.index.Iter()
	for {
		_, row, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !visit(row) {
			return nil
		}
	}
}

// Len reports the row count.
func (t *Table) Len() int { return t.index.Len() }

// --- full-file persistence -------------------------------------------------

// Encode serializes the entire store (every table's schema and rows) to a
// single byte slice, in table creation order, for a full-file rewrite.
func (s *Store) Encode() []byte {
	e := codec.NewEncoder(0)
	e.WriteLen(len(s.order))
	for _, name := range s.order {
		t := s.tables[name]
		e.WriteString(t.Name)
		encodeSchema(e, t.Schema)
		e.WriteU64(t.nextRowID)

		rows := make([]Row, 0, t.Len())
		_ = t.Scan(func(r Row) bool { rows = append(rows, r); return true })
		e.WriteLen(len(rows))
		for _, row := range rows {
			if err := value.Encode(e, row.RowID); err != nil {
				panic(err) // rowid is always a concrete orderable Value; this cannot fail
			}
			e.WriteLen(len(row.Values))
			for _, v := range row.Values {
				if err := value.Encode(e, v); err != nil {
					panic(err)
				}
			}
		}
	}
	return e.Bytes()
}

func encodeSchema(e *codec.Encoder, sc Schema) {
	e.WriteString(sc.PrimaryKey)
	e.WriteLen(len(sc.Columns))
	for _, c := range sc.Columns {
		e.WriteString(c.Name)
		e.WriteVariantTag(uint32(c.Kind))
	}
}

// Decode builds a new Store from bytes previously produced by Encode.
func Decode(raw []byte, log *logrus.Logger) (*Store, error) {
	d := codec.NewDecoder(raw)
	s := NewStore(log)

	tableCount, err := d.ReadLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < tableCount; i++ {
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		schema, err := decodeSchema(d)
		if err != nil {
			return nil, err
		}
		t, err := s.CreateTable(name, schema, false)
		if err != nil {
			return nil, err
		}
		nextRowID, err := d.ReadU64()
		if err != nil {
			return nil, err
		}
		t.nextRowID = nextRowID

		rowCount, err := d.ReadLen()
		if err != nil {
			return nil, err
		}
		for j := 0; j < rowCount; j++ {
			rowID, err := value.Decode(d)
			if err != nil {
				return nil, err
			}
			colCount, err := d.ReadLen()
			if err != nil {
				return nil, err
			}
			vals := make([]value.Value, colCount)
			for k := range vals {
				vals[k], err = value.Decode(d)
				if err != nil {
					return nil, err
				}
			}
			t.index.Insert(rowID, Row{RowID: rowID, Values: vals})
			if pk, hasPK := t.pkValue(vals); hasPK {
				t.pkIndex.Insert(pk, rowID)
			}
		}
	}
	return s, d.Done()
}

func decodeSchema(d *codec.Decoder) (Schema, error) {
	var sc Schema
	pk, err := d.ReadString()
	if err != nil {
		return sc, err
	}
	sc.PrimaryKey = pk
	n, err := d.ReadLen()
	if err != nil {
		return sc, err
	}
	sc.Columns = make([]ColumnDef, n)
	for i := range sc.Columns {
		name, err := d.ReadString()
		if err != nil {
			return sc, err
		}
		tag, err := d.ReadVariantTag()
		if err != nil {
			return sc, err
		}
		sc.Columns[i] = ColumnDef{Name: name, Kind: value.Kind(tag)}
	}
	return sc, nil
}
