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

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/chronofold/lodengine/model"
	"github.com/chronofold/lodengine/readings"
	"github.com/chronofold/lodengine/tstamp"
)

// queryResult is the JSON shape lodctl prints one of per answered
// sub-interval.
type queryResult struct {
	TimeSec          int64   `json:"time_sec"`
	NumSecondsActive int32   `json:"num_seconds_active"`
	Value            float32 `json:"value"`
}

// query answers a GetRange over [startSec, endSec) split into n
// sub-intervals and prints the result as a JSON array.
func query(cfg *Config, startSec, endSec int64, n int) {
	dm := openModel(cfg)
	defer dm.Close()

	if err := dm.Verify(); err != nil {
		exitf("checkpoint verification failed: %s\n", err)
	}

	got, err := model.GetRange[readings.StressIntensity](context.Background(), dm, tstamp.FromSeconds(startSec), tstamp.FromSeconds(endSec), n)
	if err != nil {
		exitf("get_range: %s\n", err)
	}

	out := make([]queryResult, len(got))
	for i, s := range got {
		out[i] = queryResult{
			TimeSec:          s.TimeStamp.Time.Seconds(),
			NumSecondsActive: s.NumSecondsActive,
			Value:            s.Payload.Value,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		exitf("encoding result: %s\n", err)
	}
}
