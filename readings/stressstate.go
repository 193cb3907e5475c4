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

package readings

import (
	"fmt"

	"github.com/chronofold/lodengine/lod"
)

// StressState is the stimulation state a single reading falls into.
type StressState int

const (
	StressUnknown StressState = -1
	StressUnder   StressState = 0
	StressNormal  StressState = 1
	StressOver    StressState = 2
)

func (s StressState) String() string {
	switch s {
	case StressUnder:
		return "Under"
	case StressNormal:
		return "Normal"
	case StressOver:
		return "Over"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler, which is also how
// schema.Compile recognizes StressState as an enum leaf rather than
// recursing into it as a composite.
func (s StressState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StressState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Under":
		*s = StressUnder
	case "Normal":
		*s = StressNormal
	case "Over":
		*s = StressOver
	case "Unknown":
		*s = StressUnknown
	default:
		return fmt.Errorf("readings: unrecognized StressState %q", text)
	}
	return nil
}

// StressStateCounts tracks how many samples of each stimulation state have
// been summarized. A single raw reading converts to a one-hot
// StressStateCounts (via NewStressStateCounts) before being handed to
// lod.Processor.Add, so the pyramid never needs a payload type distinct
// from the summary type it rolls up into.
type StressStateCounts struct {
	UnderCount  int32
	NormalCount int32
	OverCount   int32
}

// NewStressStateCounts builds the one-hot counts for a single observed
// state. An Unknown (or otherwise unrecognized) state contributes to no
// bucket at all.
func NewStressStateCounts(s StressState) StressStateCounts {
	switch s {
	case StressUnder:
		return StressStateCounts{UnderCount: 1}
	case StressNormal:
		return StressStateCounts{NormalCount: 1}
	case StressOver:
		return StressStateCounts{OverCount: 1}
	default:
		return StressStateCounts{}
	}
}

// GetCount returns how many samples of state s this summary accounts for.
func (c StressStateCounts) GetCount(s StressState) int32 {
	switch s {
	case StressUnder:
		return c.UnderCount
	case StressNormal:
		return c.NormalCount
	case StressOver:
		return c.OverCount
	default:
		return 0
	}
}

// GetTotalCount returns the count across every state this summary accounts
// for.
func (c StressStateCounts) GetTotalCount() int32 {
	return c.UnderCount + c.NormalCount + c.OverCount
}

// SumStressStateCounts combines a weighted bag of count summaries by
// summing raw counts and ignoring Weight entirely. Counts are exact sample
// tallies, not a rate or a mean, so re-normalizing them by the fraction of
// active seconds each input represents would corrupt them depending on how
// the query planner happened to chunk the window; summing is the only
// combine rule that is associative regardless of chunking, which is what
// lets this summary satisfy the engine's re-weighting invariant without
// being a weighted average like AverageIntensity.
func SumStressStateCounts(ws []lod.WeightedObject[StressStateCounts]) lod.ReadingSummary[StressStateCounts] {
	var total StressStateCounts
	for _, w := range ws {
		total.UnderCount += w.Object.Payload.UnderCount
		total.NormalCount += w.Object.Payload.NormalCount
		total.OverCount += w.Object.Payload.OverCount
	}
	return lod.ReadingSummary[StressStateCounts]{Payload: total}
}
