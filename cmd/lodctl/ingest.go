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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/chronofold/lodengine/lod"
	"github.com/chronofold/lodengine/model"
	"github.com/chronofold/lodengine/readings"
	"github.com/chronofold/lodengine/tstamp"
)

// ingestRecord is one line of the newline-delimited JSON input ingest
// replays: a second-resolution timestamp and a stress intensity value.
type ingestRecord struct {
	TimeSec int64   `json:"time_sec"`
	Value   float32 `json:"value"`
}

// ingest replays readings from an ndjson file into the store named by
// cfg, flushing before returning so the last active second is written
// (see lod.Processor.Flush for which coarser chunks that closes).
func ingest(cfg *Config, readingsPath string) {
	f, err := os.Open(readingsPath)
	if err != nil {
		exitf("opening %s: %s\n", readingsPath, err)
	}
	defer f.Close()

	dm := openModel(cfg)
	defer dm.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var n int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec ingestRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			exitf("parsing record %d: %s\n", n+1, err)
		}
		payload := readings.StressIntensity{Value: rec.Value}
		if !payload.Valid() {
			// a negative value marks a dropped sensor reading; skip it
			// rather than feeding a sentinel into the pyramid, the same
			// gap a real dropout leaves behind.
			continue
		}
		r := lod.Reading[readings.StressIntensity]{
			TimeStamp: lod.Stamp{Time: tstamp.FromSeconds(rec.TimeSec)},
			Payload:   payload,
		}
		if err := model.Add(ctx, dm, r); err != nil {
			exitf("adding record %d: %s\n", n+1, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		exitf("reading %s: %s\n", readingsPath, err)
	}
	if err := dm.Flush(ctx); err != nil {
		exitf("flushing: %s\n", err)
	}
	if dashv {
		logf("ingested %d records from %s into %s", n, readingsPath, cfg.StorePath)
	}
}
