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

// Package readings holds example reading payload types and the
// lod.SummaryFunction each needs, covering both shapes the engine supports:
// a plain weighted average (StressIntensity) and a summary whose combine
// step is associative under re-weighting without being a mean at all
// (StressStateCounts).
package readings

import "github.com/chronofold/lodengine/lod"

// StressIntensity is a single-field floating point reading. A negative
// value is the sentinel for "no reading" -- mirroring how the system this
// engine is modeled on represents an invalid intensity sample.
type StressIntensity struct {
	Value float32
}

// Valid reports whether i carries an actual intensity measurement.
func (i StressIntensity) Valid() bool {
	return i.Value >= 0
}

// AverageIntensity combines a weighted bag of intensity summaries into one
// weighted average: the sum of Weight times Value, with no division of its
// own, so an empty slice yields a Value of 0. lod.Processor.GetRange
// special-cases windows with zero active seconds instead of calling the
// summary function, so it never hands AverageIntensity an empty slice.
func AverageIntensity(ws []lod.WeightedObject[StressIntensity]) lod.ReadingSummary[StressIntensity] {
	var sum float64
	for _, w := range ws {
		sum += float64(w.Weight) * float64(w.Object.Payload.Value)
	}
	return lod.ReadingSummary[StressIntensity]{Payload: StressIntensity{Value: float32(sum)}}
}
