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

package tstamp

import "testing"

func TestValid(t *testing.T) {
	if Unset.Valid() {
		t.Fatal("Unset must not be valid")
	}
	if !TimeStamp(0).Valid() {
		t.Fatal("epoch zero must be valid")
	}
}

func TestChunkIndex(t *testing.T) {
	cases := []struct {
		sec   int64
		size  uint32
		index uint64
	}{
		{0, 60, 0},
		{59, 60, 0},
		{60, 60, 1},
		{119, 60, 1},
		{3600, 3600, 1},
	}
	for _, c := range cases {
		got := ChunkIndex(c.sec, c.size)
		if got != c.index {
			t.Errorf("ChunkIndex(%d, %d) = %d, want %d", c.sec, c.size, got, c.index)
		}
	}
}

func TestFloorCeilToMultiple(t *testing.T) {
	if got := FloorToMultiple(125, 60); got != 120 {
		t.Errorf("FloorToMultiple(125, 60) = %d, want 120", got)
	}
	if got := FloorToMultiple(120, 60); got != 120 {
		t.Errorf("FloorToMultiple(120, 60) = %d, want 120", got)
	}
	if got := CeilToMultiple(121, 60); got != 180 {
		t.Errorf("CeilToMultiple(121, 60) = %d, want 180", got)
	}
	if got := CeilToMultiple(120, 60); got != 120 {
		t.Errorf("CeilToMultiple(120, 60) = %d, want 120", got)
	}
}

func TestChunkStartSeconds(t *testing.T) {
	if got := ChunkStartSeconds(2, 3600); got != 7200 {
		t.Errorf("ChunkStartSeconds(2, 3600) = %d, want 7200", got)
	}
}
