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

// Package lod implements the level-of-detail aggregation pyramid: the
// per-type Processor that decides when a reading closes a chunk at each
// tier, computes the weighted summary for that chunk, and answers range
// queries by composing summaries from the coarsest tier that fits.
package lod

import "github.com/chronofold/lodengine/tstamp"

// Stamp is the on-disk shape of a timestamp field: a single column named
// "Time", so that the compiled column path reads "TimeStamp/Time" exactly
// as it does in the system this engine is modeled on.
type Stamp struct {
	Time tstamp.TimeStamp
}

// Reading is a single timestamped observation of payload type T.
type Reading[T any] struct {
	TimeStamp Stamp
	Payload   T
}

// ReadingSummary is an aggregate over a contiguous, possibly-partial window.
// NumSecondsActive counts the source seconds that actually contributed; it
// is always <= the tier's nominal window length, and it is how the pyramid
// represents a gap: a gap's summary simply doesn't exist, so a summary that
// spans a gap has a smaller active count than its window.
type ReadingSummary[T any] struct {
	TimeStamp        Stamp
	NumSecondsActive int32
	Payload          T
}

// WeightedObject pairs a summary with the weight it should contribute when
// combined with others. Weights across one input slice sum to (approximately)
// 1.0 when used for averaging.
type WeightedObject[T any] struct {
	Weight float32
	Object ReadingSummary[T]
}

// SummaryFunction combines a weighted bag of summaries into one. It must be
// associative under re-weighting: collapsing N summaries each representing
// k seconds must match collapsing them in one step with adjusted weights,
// or query results become biased toward however the planner happened to
// chunk the window. SummaryFunction is never called with an empty slice;
// the planner special-cases windows with zero active seconds instead (see
// Processor.GetRange).
type SummaryFunction[T any] func([]WeightedObject[T]) ReadingSummary[T]
