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

import "github.com/chronofold/lodengine/store"

// NumTiers is the number of hard-coded LOD tiers every processor owns.
const NumTiers = 5

// tierSizes is the chunk width, in seconds, of each of the five tiers, from
// finest to coarsest.
var tierSizes = [NumTiers]uint32{1, 60, 3600, 86400, 604800}

// tierSuffixes names the physical table suffix for each tier: the table id
// for tier i of type "Foo" is "Foo_<tierSuffixes[i]>".
var tierSuffixes = [NumTiers]string{"Seconds", "Minutes", "Hours", "Days", "Weeks"}

// noChunk is the sentinel "no current chunk" value for a tier's chunk
// index, equivalent to the spec's current_chunk_index == -1.
const noChunk int64 = -1

// tierState is one level of a processor's pyramid: the chunk width, the
// index of the currently-open (not yet written) chunk, and the table that
// holds every previously-closed chunk's summary.
type tierState struct {
	secondsPerChunk   uint32
	currentChunkIndex int64
	table             *store.TableHandle
	tsColumn          string // sanitized name of the "TimeStamp/Time" column
}
