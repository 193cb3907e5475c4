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
	"math"

	"github.com/chronofold/lodengine/errs"
	"github.com/chronofold/lodengine/tstamp"
)

// GetRange divides [start, end] into exactly n equal sub-intervals and
// returns one summary per sub-interval, timestamped at its start. n must be
// positive; GetRange either returns exactly n summaries or an error, never
// a partial result.
func (p *Processor[T]) GetRange(ctx context.Context, start, end tstamp.TimeStamp, n int) ([]ReadingSummary[T], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", errs.ErrLogic, n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	startSec := float64(start.Seconds())
	fullRange := float64(end.Seconds() - start.Seconds())
	step := fullRange / float64(n)

	out := make([]ReadingSummary[T], n)
	cur := startSec
	for i := 0; i < n; i++ {
		s := int64(math.Round(cur))
		e := int64(math.Round(cur + step))
		summary, err := p.getSubRange(ctx, s, e)
		if err != nil {
			return nil, err
		}
		out[i] = summary
		cur += step
	}
	return out, nil
}

// getSubRange answers a single [sSec, eSec) sub-window by picking the
// coarsest tier whose chunk boundaries fit inside it, covering the
// interior with that tier's summaries and the leading/trailing fringe with
// progressively finer tiers. Callers must hold p.mu.
func (p *Processor[T]) getSubRange(ctx context.Context, sSec, eSec int64) (ReadingSummary[T], error) {
	cur := sSec
	var totalActive int32
	var weighted []WeightedObject[T]

	lodIndex := 0
	for ; lodIndex < NumTiers-1; lodIndex++ {
		nextDur := int64(p.tiers[lodIndex+1].secondsPerChunk)
		nextLODStart := tstamp.CeilToMultiple(cur, p.tiers[lodIndex+1].secondsPerChunk)
		nextLODEnd := nextLODStart + nextDur

		if nextLODEnd < eSec {
			delta := nextLODStart - cur
			if delta <= 0 {
				// cur is already aligned to the next tier's boundary;
				// nothing for this tier to cover before that boundary.
				// The coarser tier picks up coverage starting here on its
				// own iteration.
				continue
			}
			active, objs, err := p.collect(ctx, lodIndex, cur, nextLODStart)
			if err != nil {
				return ReadingSummary[T]{}, err
			}
			totalActive += active
			weighted = append(weighted, objs...)
			cur = nextLODStart
		} else {
			curLODEnd := tstamp.FloorToMultiple(eSec, p.tiers[lodIndex].secondsPerChunk)
			active, objs, err := p.collect(ctx, lodIndex, cur, curLODEnd)
			if err != nil {
				return ReadingSummary[T]{}, err
			}
			totalActive += active
			weighted = append(weighted, objs...)
			cur = curLODEnd
			break
		}
	}

	for m := lodIndex - 1; m >= 0; m-- {
		curLODEnd := tstamp.FloorToMultiple(eSec, p.tiers[m].secondsPerChunk)
		active, objs, err := p.collect(ctx, m, cur, curLODEnd)
		if err != nil {
			return ReadingSummary[T]{}, err
		}
		totalActive += active
		weighted = append(weighted, objs...)
		cur = curLODEnd
	}

	if totalActive == 0 {
		return ReadingSummary[T]{
			TimeStamp:        Stamp{Time: tstamp.FromSeconds(sSec)},
			NumSecondsActive: 0,
		}, nil
	}

	for i := range weighted {
		weighted[i].Weight = float32(weighted[i].Object.NumSecondsActive) / float32(totalActive)
	}

	summary := p.summaryFn(weighted)
	summary.TimeStamp = Stamp{Time: tstamp.FromSeconds(sSec)}
	summary.NumSecondsActive = totalActive
	return summary, nil
}

// collect range-scans tier M's table over [aSec, bSec) and returns its rows
// as WeightedObjects with a placeholder weight of zero -- weights are
// normalized by the caller in a second pass once the grand total of active
// seconds across the whole walk is known.
func (p *Processor[T]) collect(ctx context.Context, tierIdx int, aSec, bSec int64) (int32, []WeightedObject[T], error) {
	if bSec <= aSec {
		return 0, nil, nil
	}
	tier := &p.tiers[tierIdx]
	where := fmt.Sprintf("%q >= %d AND %q < %d", tier.tsColumn, aSec*1000, tier.tsColumn, bSec*1000)
	rows, err := tier.table.Query(ctx, where)
	if err != nil {
		return 0, nil, err
	}

	var total int32
	objs := make([]WeightedObject[T], len(rows))
	for i, v := range rows {
		summary := v.Interface().(ReadingSummary[T])
		total += summary.NumSecondsActive
		objs[i] = WeightedObject[T]{Weight: 0, Object: summary}
	}
	return total, objs, nil
}
