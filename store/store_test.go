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

package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

type row struct {
	TimeMillis int64
	Value      float64
}

func TestCreateInsertQueryClear(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	tbl, err := s.CreateTable("Readings", reflect.TypeOf(row{}))
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	defer tbl.Close()

	if err := tbl.CreateIndex(tbl.Descriptor().Columns[0]); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	want := []row{
		{TimeMillis: 1000, Value: 1.5},
		{TimeMillis: 2000, Value: 2.5},
		{TimeMillis: 3000, Value: 3.5},
	}
	for _, r := range want {
		if err := tbl.Insert(ctx, reflect.ValueOf(r)); err != nil {
			t.Fatalf("Insert(%+v): %v", r, err)
		}
	}

	got, err := tbl.Query(ctx, "TimeMillis >= 1500 AND TimeMillis < 3000")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Interface().(row) != want[1] {
		t.Fatalf("got %+v, want %+v", got[0].Interface(), want[1])
	}

	if err := tbl.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err = tbl.Query(ctx, "")
	if err != nil {
		t.Fatalf("Query after clear: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 rows after clear, got %d", len(got))
	}
}

func TestInsertTypeMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	tbl, err := s.CreateTable("Readings", reflect.TypeOf(row{}))
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	defer tbl.Close()

	type other struct{ X int64 }
	if err := tbl.Insert(ctx, reflect.ValueOf(other{X: 1})); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
