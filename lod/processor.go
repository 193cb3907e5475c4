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
	"fmt"
	"reflect"
	"sync"

	"github.com/chronofold/lodengine/errs"
	"github.com/chronofold/lodengine/store"
	"github.com/chronofold/lodengine/tstamp"
)

// Processor owns one raw table (optional) plus one table per LOD tier for a
// single registered reading type, the per-second cache, and the current
// open-chunk index per tier. It is the heart of the engine: Add, Flush, and
// GetRange are the entire ingest and query surface.
//
// Per the engine's concurrency model, Processor takes a coarse internal
// lock as a convenience; it does not provide finer-grained concurrency, and
// callers are still expected to serialize their own calls into a given
// DataModel.
type Processor[T any] struct {
	mu sync.Mutex

	typeName        string
	keepRaw         bool
	rawTable        *store.TableHandle
	rawTsColumn     string
	tiers           [NumTiers]tierState
	rawCache        []ReadingSummary[T]
	lastReadingTime tstamp.TimeStamp
	summaryFn       SummaryFunction[T]
}

// NewProcessor builds the tables for one registered type: the raw table
// (if keepRaw), and NumTiers LOD tables, each with a timestamp index.
func NewProcessor[T any](st *store.Store, typeName string, keepRaw bool, summaryFn SummaryFunction[T]) (*Processor[T], error) {
	p := &Processor[T]{
		typeName:        typeName,
		keepRaw:         keepRaw,
		summaryFn:       summaryFn,
		lastReadingTime: tstamp.Unset,
	}
	for i := range p.tiers {
		p.tiers[i].currentChunkIndex = noChunk
		p.tiers[i].secondsPerChunk = tierSizes[i]
	}

	if keepRaw {
		rt, err := st.CreateTable(typeName, reflect.TypeOf(Reading[T]{}))
		if err != nil {
			return nil, fmt.Errorf("raw table for %s: %w", typeName, err)
		}
		col, ok := rt.Descriptor().ColumnByPath("TimeStamp", "Time")
		if !ok {
			return nil, fmt.Errorf("%w: reading type %s has no TimeStamp/Time column", errs.ErrLogic, typeName)
		}
		if err := rt.CreateIndex(col); err != nil {
			return nil, err
		}
		p.rawTable = rt
		p.rawTsColumn = col.Name
	}

	summaryType := reflect.TypeOf(ReadingSummary[T]{})
	for i := range p.tiers {
		id := fmt.Sprintf("%s_%s", typeName, tierSuffixes[i])
		tbl, err := st.CreateTable(id, summaryType)
		if err != nil {
			return nil, fmt.Errorf("tier table %s: %w", id, err)
		}
		col, ok := tbl.Descriptor().ColumnByPath("TimeStamp", "Time")
		if !ok {
			return nil, fmt.Errorf("%w: summary type for %s has no TimeStamp/Time column", errs.ErrLogic, typeName)
		}
		if err := tbl.CreateIndex(col); err != nil {
			return nil, err
		}
		p.tiers[i].table = tbl
		p.tiers[i].tsColumn = col.Name
	}

	return p, nil
}

// Add ingests one reading: it first runs the flush pass for the reading's
// timestamp (which may close one or more tier chunks), then optionally
// persists the raw reading, then appends a degenerate one-second summary to
// the raw cache. Timestamps handed to Add must be non-decreasing; an
// out-of-order reading (one whose second falls behind the Seconds tier's
// open chunk) is silently dropped without mutating any tier state, the raw
// table, or the raw cache, so Add does not report that case as an error.
func (p *Processor[T]) Add(ctx context.Context, r Reading[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur := p.tiers[0].currentChunkIndex; cur != noChunk && r.TimeStamp.Time.Seconds() < cur {
		return nil // stale/out-of-order reading: dropped
	}

	if err := p.flush(ctx, r.TimeStamp.Time); err != nil {
		return err
	}

	if p.keepRaw {
		if err := p.rawTable.Insert(ctx, reflect.ValueOf(r)); err != nil {
			return err
		}
	}

	p.rawCache = append(p.rawCache, ReadingSummary[T]{
		TimeStamp:        r.TimeStamp,
		NumSecondsActive: 1,
		Payload:          r.Payload,
	})
	p.lastReadingTime = r.TimeStamp.Time
	return nil
}

// Flush forces the seconds-tier chunk for the last active second to close,
// if there has been any activity at all. Call it once ingest has gone
// quiescent (no more readings expected) so the last active second becomes
// durable. Coarser tiers close their open chunk only when that following
// second crosses their chunk boundary; otherwise their chunk stays open and
// is not written.
func (p *Processor[T]) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastReadingTime.Valid() {
		return nil
	}
	return p.flush(ctx, p.lastReadingTime.AddSeconds(1))
}

// ChunkIndices returns a snapshot of the currently open chunk index at each
// tier, finest first. It exists for the checkpoint package, which signs this
// vector after a flush so a restart can detect a store file that doesn't
// match its checkpoint sidecar.
func (p *Processor[T]) ChunkIndices() [NumTiers]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out [NumTiers]int64
	for i := range p.tiers {
		out[i] = p.tiers[i].currentChunkIndex
	}
	return out
}

// flush walks the tiers from finest to coarsest, closing any chunk that t
// has advanced past. Callers must hold p.mu.
//
// For tier L: chunkIndex is the chunk t falls into. If chunkIndex equals
// the tier's current open chunk, that chunk (and every coarser one) is
// still open, so the walk stops. If chunkIndex is less than the current
// open chunk, t is stale (arrived out of order); the walk stops without
// mutating anything -- this is a distinct branch from the equal case even
// though both stop the walk, because one means "nothing to do" and the
// other means "drop this reading". Otherwise the tier's previously-open
// chunk has just closed: its summary is computed from the finer tier's
// just-written rows (or, at the Seconds tier, from the raw cache) and
// written down, and the tier advances to chunkIndex.
func (p *Processor[T]) flush(ctx context.Context, t tstamp.TimeStamp) error {
	tSec := t.Seconds()
	var prevTier *tierState

	for i := range p.tiers {
		tier := &p.tiers[i]
		chunkIndex := int64(tstamp.ChunkIndex(tSec, tier.secondsPerChunk))

		if tier.currentChunkIndex != noChunk && chunkIndex == tier.currentChunkIndex {
			break // this chunk, and every coarser one, is still open
		}
		if tier.currentChunkIndex != noChunk && chunkIndex < tier.currentChunkIndex {
			break // stale/out-of-order reading: stop, mutate nothing
		}

		if tier.currentChunkIndex != noChunk {
			prevChunkStartSec := tstamp.ChunkStartSeconds(uint64(tier.currentChunkIndex), tier.secondsPerChunk)

			var inputs []ReadingSummary[T]
			if prevTier == nil {
				inputs = p.rawCache
				p.rawCache = nil
			} else {
				rows, err := prevTier.table.Query(ctx, fmt.Sprintf("%q >= %d", prevTier.tsColumn, prevChunkStartSec*1000))
				if err != nil {
					return err
				}
				inputs = make([]ReadingSummary[T], len(rows))
				for j, v := range rows {
					inputs[j] = v.Interface().(ReadingSummary[T])
				}
			}

			if len(inputs) == 0 {
				return fmt.Errorf("%w: tier %s closed with no contributing inputs", errs.ErrLogic, tierSuffixes[i])
			}

			weight := float32(1.0 / float64(len(inputs)))
			var totalActive int32
			weighted := make([]WeightedObject[T], len(inputs))
			for j, in := range inputs {
				totalActive += in.NumSecondsActive
				weighted[j] = WeightedObject[T]{Weight: weight, Object: in}
			}

			summary := p.summaryFn(weighted)
			summary.TimeStamp = Stamp{Time: tstamp.FromSeconds(prevChunkStartSec)}
			summary.NumSecondsActive = totalActive

			if err := tier.table.Insert(ctx, reflect.ValueOf(summary)); err != nil {
				return err
			}
		}

		tier.currentChunkIndex = chunkIndex
		prevTier = tier
	}

	return nil
}
