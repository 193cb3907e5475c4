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
	"archive/tar"
	"bytes"
	"io"
	"os"

	"github.com/chronofold/lodengine/compr"
)

// exportFiles is the store file plus the WAL/SHM siblings WAL mode leaves
// behind and the checkpoint sidecar -- everything a restore needs to bring
// the store back exactly as it was.
func exportFiles(cfg *Config) []string {
	return []string{
		cfg.StorePath,
		cfg.StorePath + "-wal",
		cfg.StorePath + "-shm",
		cfg.CheckpointPath,
	}
}

// export tars the store's files in memory, then compresses the whole tar
// through compr's zstd Compressor and writes the result as a single portable
// snapshot file. Missing optional siblings (there may be no -wal/-shm file
// if the store was cleanly closed) are skipped rather than treated as an
// error.
func export(cfg *Config, outPath string) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	var n int
	for _, path := range exportFiles(cfg) {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			exitf("stat %s: %s\n", path, err)
		}
		if err := addFileToTar(tw, path, info); err != nil {
			exitf("adding %s to export: %s\n", path, err)
		}
		n++
	}
	if err := tw.Close(); err != nil {
		exitf("closing tar: %s\n", err)
	}

	zstd := compr.Compression("zstd")
	packed := zstd.Compress(buf.Bytes(), nil)

	if err := os.WriteFile(outPath, packed, 0o644); err != nil {
		exitf("writing %s: %s\n", outPath, err)
	}
	if dashv {
		logf("exported %d files from %s into %s via %s (%d -> %d bytes)",
			n, cfg.StorePath, outPath, zstd.Name(), buf.Len(), len(packed))
	}
}

func addFileToTar(tw *tar.Writer, path string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = info.Name()
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
