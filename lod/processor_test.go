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

package lod

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chronofold/lodengine/store"
	"github.com/chronofold/lodengine/tstamp"
)

type sample struct {
	Value float64
}

// avgSample is a SummaryFunction that reconstructs the weighted average of
// Value across its inputs, mirroring how a real averaging reading (e.g. a
// temperature or a stress intensity) would collapse.
func avgSample(ws []WeightedObject[sample]) ReadingSummary[sample] {
	var sum float64
	for _, w := range ws {
		sum += float64(w.Weight) * w.Object.Payload.Value
	}
	return ReadingSummary[sample]{Payload: sample{Value: sum}}
}

func newTestProcessor(t *testing.T) *Processor[sample] {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p, err := NewProcessor[sample](st, "Sample", true, avgSample)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

func addSeconds(t *testing.T, ctx context.Context, p *Processor[sample], fromSec, toSec int64, value func(sec int64) float64) {
	t.Helper()
	for sec := fromSec; sec < toSec; sec++ {
		r := Reading[sample]{
			TimeStamp: Stamp{Time: tstamp.FromSeconds(sec)},
			Payload:   sample{Value: value(sec)},
		}
		if err := p.Add(ctx, r); err != nil {
			t.Fatalf("Add(%d): %v", sec, err)
		}
	}
}

// TestSingleReading covers the degenerate one-reading case: a single Add
// followed by a Flush must close the seconds chunk and make it queryable.
func TestSingleReading(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	if err := p.Add(ctx, Reading[sample]{TimeStamp: Stamp{Time: tstamp.FromSeconds(0)}, Payload: sample{Value: 5}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := p.GetRange(ctx, tstamp.FromSeconds(0), tstamp.FromSeconds(1), 1)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	if got[0].NumSecondsActive != 1 {
		t.Errorf("NumSecondsActive = %d, want 1", got[0].NumSecondsActive)
	}
	if got[0].Payload.Value != 5 {
		t.Errorf("Payload.Value = %v, want 5", got[0].Payload.Value)
	}
}

// TestFlushNoReadings verifies that calling Flush before any reading has
// ever arrived is a harmless no-op.
func TestFlushNoReadings(t *testing.T) {
	p := newTestProcessor(t)
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush on empty processor: %v", err)
	}
}

// TestTwoFullMinutes ingests two full, contiguous minutes of per-second
// readings and checks that GetRange over the full two-minute span composes
// its answer from the Minutes tier (per the coarsest-tier-that-fits walk),
// reconstructing the same average a flat scan over all 120 readings would,
// up to the rounding of the float32 1/60 ingest weights (about 3e-6 here).
func TestTwoFullMinutes(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	addSeconds(t, ctx, p, 0, 120, func(sec int64) float64 { return float64(sec) })
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := p.GetRange(ctx, tstamp.FromSeconds(0), tstamp.FromSeconds(120), 1)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	if got[0].NumSecondsActive != 120 {
		t.Errorf("NumSecondsActive = %d, want 120", got[0].NumSecondsActive)
	}
	const want = 59.5 // mean of 0..119
	if diff := got[0].Payload.Value - want; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("Payload.Value = %v, want %v", got[0].Payload.Value, want)
	}
}

// TestGapLeavesPartialActiveCount covers the inactivity/gap invariant: a
// chunk that closes having only partially been fed readings reports fewer
// active seconds than its nominal window, rather than padding with zeros.
func TestGapLeavesPartialActiveCount(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	addSeconds(t, ctx, p, 0, 30, func(sec int64) float64 { return 1 })
	// Jump straight to second 60, skipping 30..59 entirely. This Add closes
	// both the still-open Seconds chunk for second 29 and the still-open
	// Minutes chunk 0.
	if err := p.Add(ctx, Reading[sample]{TimeStamp: Stamp{Time: tstamp.FromSeconds(60)}, Payload: sample{Value: 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := p.GetRange(ctx, tstamp.FromSeconds(0), tstamp.FromSeconds(60), 1)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	if got[0].NumSecondsActive != 30 {
		t.Errorf("NumSecondsActive = %d, want 30 (the gap should not be padded)", got[0].NumSecondsActive)
	}
}

// TestStaleReadingDropped exercises the less-than branch of the chunk-index
// comparison: a reading whose timestamp falls behind the currently open
// chunk must be dropped without disturbing any tier's state.
func TestStaleReadingDropped(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	addSeconds(t, ctx, p, 0, 5, func(sec int64) float64 { return 1 })
	before := p.tiers[0].currentChunkIndex

	stale := Reading[sample]{TimeStamp: Stamp{Time: tstamp.FromSeconds(2)}, Payload: sample{Value: 99}}
	if err := p.Add(ctx, stale); err != nil {
		t.Fatalf("Add(stale): %v", err)
	}

	if p.tiers[0].currentChunkIndex != before {
		t.Errorf("stale reading mutated tier state: before=%d after=%d", before, p.tiers[0].currentChunkIndex)
	}
}

// TestGetRangeRejectsNonPositiveN covers the one explicit input-validation
// edge case GetRange owns.
func TestGetRangeRejectsNonPositiveN(t *testing.T) {
	p := newTestProcessor(t)
	if _, err := p.GetRange(context.Background(), tstamp.FromSeconds(0), tstamp.FromSeconds(10), 0); err == nil {
		t.Fatal("expected error for n=0")
	}
}
