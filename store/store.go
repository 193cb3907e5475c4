// Copyright (C) 2024 Chronofold Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package store wraps the embedded relational engine the LOD pyramid is
// persisted to. It owns a single exclusive connection to one database file
// and hands out TableHandles that each own their own prepared insert
// statement, create their own indexes, and run the one SELECT shape the
// engine ever issues: a range scan over an indexed timestamp column.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chronofold/lodengine/errs"
	"github.com/chronofold/lodengine/schema"
)

// ErrStore wraps every failure originating from the relational engine
// itself: open, create, prepare, step, or reset.
var ErrStore = errors.New("store error")

// Store owns the single connection to one database file for the lifetime of
// the process that opened it. Per §5, the core assumes this connection is
// not shared concurrently by multiple callers without external
// serialization; Store adds a coarse mutex only as a convenience guard
// against accidental concurrent use, not as a substitute for caller
// discipline.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) a database file at path, configured
// with WAL journaling, synchronous=OFF, an in-memory temp store, and
// exclusive locking mode -- optimization choices that also happen to rule
// out multi-process access, which this engine assumes never happens anyway.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=OFF&_temp_store=MEMORY&_locking_mode=EXCLUSIVE",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStore, path, err)
	}
	// Exclusive locking mode plus WAL wants exactly one connection; more
	// than one here would just serialize behind SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStore, path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying connection. Callers must close every
// TableHandle derived from this Store first so prepared statements are
// finalized before the connection goes away.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStore, s.path, err)
	}
	return nil
}

// TableHandle owns one relational table plus its prepared insert statement.
type TableHandle struct {
	store      *Store
	id         string // sanitized physical table name
	desc       *schema.Descriptor
	insertStmt *sql.Stmt
}

// CreateTable compiles typ via schema.Compile, issues CREATE TABLE IF NOT
// EXISTS with the resulting columns, and prepares a reusable INSERT
// statement. id is sanitized identically to column names so the mapping
// from a user-visible table id to its physical name is stable.
func (s *Store) CreateTable(id string, typ reflect.Type) (*TableHandle, error) {
	desc, err := schema.Compile(typ)
	if err != nil {
		return nil, err
	}
	physical := schema.SanitizeIdent(id)

	var cols []string
	var placeholders []string
	for _, c := range desc.Columns {
		cols = append(cols, fmt.Sprintf("%q %s", c.Name, c.SQLType))
		placeholders = append(placeholders, "?")
	}
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", physical, strings.Join(cols, ", "))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(createSQL); err != nil {
		return nil, fmt.Errorf("%w: create table %s: %v", ErrStore, physical, err)
	}

	var colNames []string
	for _, c := range desc.Columns {
		colNames = append(colNames, fmt.Sprintf("%q", c.Name))
	}
	insertSQL := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", physical, strings.Join(colNames, ", "), strings.Join(placeholders, ", "))
	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare insert for %s: %v", ErrStore, physical, err)
	}

	return &TableHandle{store: s, id: physical, desc: desc, insertStmt: stmt}, nil
}

// CreateIndex issues CREATE INDEX IF NOT EXISTS against col, by its
// sanitized column name. Idempotent.
func (t *TableHandle) CreateIndex(col schema.Column) error {
	indexName := fmt.Sprintf("%s_%s", t.id, col.Name)
	sqlStr := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %q ON %q (%q)", indexName, t.id, col.Name)

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, err := t.store.db.Exec(sqlStr); err != nil {
		return fmt.Errorf("%w: create index %s on %s: %v", ErrStore, indexName, t.id, err)
	}
	return nil
}

// Insert binds v (which must be of the type TableHandle was created with)
// against the prepared insert statement and steps it. A single row per
// call.
func (t *TableHandle) Insert(ctx context.Context, v reflect.Value) error {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Type() != t.desc.Type {
		return fmt.Errorf("%w: insert type %s does not match table type %s", errs.ErrTypeMismatch, v.Type(), t.desc.Type)
	}
	args, err := t.desc.Bind(v)
	if err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, err := t.insertStmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("%w: insert into %s: %v", ErrStore, t.id, err)
	}
	return nil
}

// Query runs "SELECT * FROM <table> WHERE <whereClause>" (or, when
// whereClause is empty, "SELECT * FROM <table>") and materializes one
// freshly-constructed value of the table's type per returned row.
func (t *TableHandle) Query(ctx context.Context, whereClause string, args ...any) ([]reflect.Value, error) {
	sqlStr := fmt.Sprintf("SELECT * FROM %q", t.id)
	if whereClause != "" {
		sqlStr += " WHERE " + whereClause
	}

	t.store.mu.Lock()
	rows, err := t.store.db.QueryContext(ctx, sqlStr, args...)
	t.store.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrStore, t.id, err)
	}
	defer rows.Close()

	var out []reflect.Value
	cells := make([]any, len(t.desc.Columns))
	ptrs := make([]any, len(cells))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan row from %s: %v", ErrStore, t.id, err)
		}
		v, err := t.desc.Materialize(cells)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrStore, t.id, err)
	}
	return out, nil
}

// Clear deletes every row in the table.
func (t *TableHandle) Clear(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, err := t.store.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", t.id)); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrStore, t.id, err)
	}
	return nil
}

// Descriptor exposes the compiled schema for the table's type, used by
// callers that need to find a column by path (e.g. the timestamp column).
func (t *TableHandle) Descriptor() *schema.Descriptor {
	return t.desc
}

// Close finalizes the prepared insert statement. The table's Store must
// outlive the TableHandle; Close does not close the Store.
func (t *TableHandle) Close() error {
	if err := t.insertStmt.Close(); err != nil {
		return fmt.Errorf("%w: finalize insert statement for %s: %v", ErrStore, t.id, err)
	}
	return nil
}
