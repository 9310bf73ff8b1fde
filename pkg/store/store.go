// Package store persists feature frames to a relational table and reads them
// back. It is the single source of truth for the stages after generation.
//
// Supported locations are SQLite files (or in-memory databases) and
// PostgreSQL, selected by the scheme of the connection string.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "features"

// Mode selects write semantics.
type Mode int

const (
	// ModeReplace drops and recreates the table in one transaction.
	ModeReplace Mode = iota
)

// Store is an open feature store location.
type Store struct {
	db  *sql.DB
	d   dialect
	uri string
}

// Open connects to the location named by uri and verifies it is reachable.
func Open(ctx context.Context, uri string) (*Store, error) {
	const op = "store.Open"
	d, dsn, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, op, err)
	}
	if d.maxConns > 0 {
		db.SetMaxOpenConns(d.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.StoreUnavailable, op, err)
	}
	return &Store{db: db, d: d, uri: uri}, nil
}

// URI returns the connection string the store was opened with.
func (s *Store) URI() string { return s.uri }

// Dialect returns the backend name, "sqlite" or "postgres".
func (s *Store) Dialect() string { return s.d.name }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Write persists f under table. With ModeReplace any existing table is dropped
// and recreated with f's schema inside a single transaction, so readers see
// either the old table or the complete new one.
func (s *Store) Write(ctx context.Context, f *dataset.Frame, table string, mode Mode) error {
	const op = "store.Write"
	if mode != ModeReplace {
		return errs.New(errs.InvalidConfiguration, op, "unsupported write mode %d", mode)
	}
	if !validTable(table) {
		return errs.New(errs.SchemaError, op, "invalid table name %q", table)
	}
	if f.NumCols() == 0 {
		return errs.New(errs.SchemaError, op, "frame has no columns")
	}
	if dups := f.DuplicateNames(); len(dups) > 0 {
		return errs.New(errs.SchemaError, op, "duplicate column names %v", dups)
	}
	schema := f.Schema()
	for _, name := range schema.Names {
		if name == "" {
			return errs.New(errs.SchemaError, op, "empty column name")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.StoreUnavailable, op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return errs.Wrap(errs.StoreUnavailable, op, fmt.Errorf("drop table: %w", err))
	}
	if _, err := tx.ExecContext(ctx, s.d.createTable(table, schema)); err != nil {
		return errs.Wrap(errs.StoreUnavailable, op, fmt.Errorf("create table: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, s.d.insert(table, schema))
	if err != nil {
		return errs.Wrap(errs.StoreUnavailable, op, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	cols := f.Columns()
	args := make([]any, len(cols))
	for i := 0; i < f.NumRows(); i++ {
		for j, c := range cols {
			if c.Kind == dataset.Int {
				args[j] = int64(c.Values[i])
			} else {
				args[j] = c.Values[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errs.Wrap(errs.StoreUnavailable, op, fmt.Errorf("insert row %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.StoreUnavailable, op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Read loads table in insertion order.
func (s *Store) Read(ctx context.Context, table string) (*dataset.Frame, error) {
	const op = "store.Read"
	ok, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.TableNotFound, op, "table %q does not exist", table)
	}

	rows, err := s.db.QueryContext(ctx, s.d.selectAll(table))
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, op, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, op, err)
	}
	cols := make([]dataset.Column, len(types))
	for j, ct := range types {
		cols[j] = dataset.Column{Name: ct.Name(), Kind: kindOf(ct.DatabaseTypeName()), Values: []float64{}}
	}

	vals := make([]sql.NullFloat64, len(cols))
	dest := make([]any, len(cols))
	for j := range vals {
		dest[j] = &vals[j]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errs.Wrap(errs.SchemaError, op, err)
		}
		for j, v := range vals {
			if !v.Valid {
				return nil, errs.New(errs.SchemaError, op, "null value in column %q", cols[j].Name)
			}
			cols[j].Values = append(cols[j].Values, v.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, op, err)
	}

	f, err := dataset.New(cols...)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaError, op, err)
	}
	return f, nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.d.tableExists, table).Scan(&n); err != nil {
		return false, errs.Wrap(errs.StoreUnavailable, "store.Read", err)
	}
	return n > 0, nil
}
