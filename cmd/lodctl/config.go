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
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Config is the on-disk shape of a lodctl config file: where the store
// lives, whether raw readings are retained alongside the pyramid, and
// where the checkpoint sidecar is kept. It is decoded with sigs.k8s.io/yaml
// (YAML-that's-really-JSON), the same library the teacher's go.mod already
// carried.
type Config struct {
	StorePath      string `json:"store_path"`
	KeepRaw        bool   `json:"keep_raw"`
	CheckpointPath string `json:"checkpoint_path,omitempty"`
}

func loadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		exitf("reading config %s: %s\n", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		exitf("parsing config %s: %s\n", path, err)
	}
	if cfg.StorePath == "" {
		exitf("config %s: store_path is required\n", path)
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = cfg.StorePath + ".checkpoint"
	}
	return &cfg
}

func (c Config) String() string {
	return fmt.Sprintf("store=%s keep_raw=%v checkpoint=%s", c.StorePath, c.KeepRaw, c.CheckpointPath)
}
