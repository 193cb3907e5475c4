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
	"os"

	"github.com/chronofold/lodengine/checkpoint"
	"github.com/chronofold/lodengine/model"
	"github.com/chronofold/lodengine/readings"
)

// checkpointKey resolves the signing key for checkpoints: -unsafe always
// wins with the fixed, publicly-known key; otherwise -k names a key file to
// read raw bytes from.
func checkpointKey() []byte {
	if dashunsafe {
		logf("using unsafe checkpoint key")
		return checkpoint.UnsafeKey
	}
	if dashk == "" {
		exitf("a key file (-k) is required unless -unsafe is set\n")
	}
	key, err := os.ReadFile(dashk)
	if err != nil {
		exitf("reading key file %s: %s\n", dashk, err)
	}
	return key
}

// openModel opens cfg's store and registers the one reading type lodctl
// knows how to ingest/query today: StressIntensity. cmd/lodctl is an
// example driver, not a generic loader, so it does not attempt to
// discover reading types dynamically.
func openModel(cfg *Config) *model.DataModel {
	dm, err := model.Init(cfg.StorePath, keepRawMode(cfg.KeepRaw), model.WithCheckpointKey(cfg.CheckpointPath, checkpointKey()))
	if err != nil {
		exitf("opening store %s: %s\n", cfg.StorePath, err)
	}
	if err := model.RegisterType[readings.StressIntensity](dm, "StressIntensity", readings.AverageIntensity); err != nil {
		exitf("registering StressIntensity: %s\n", err)
	}
	return dm
}

func keepRawMode(enabled bool) model.KeepRawMode {
	if enabled {
		return model.KeepRawEnabled
	}
	return model.KeepRawDisabled
}
