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

// Package checkpoint signs the in-memory chunk-index state of a model's
// registered processors so that, on restart, a store file that doesn't
// match the last signed state (copied in from a backup without its
// sidecar, or left behind by a process that crashed mid-flush) is detected
// instead of silently served.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

// ErrMismatch is returned by Verify when the on-disk checkpoint's signature
// does not match the recomputed one for the given manifests.
var ErrMismatch = errors.New("checkpoint: signature mismatch")

// Manifest is one registered type's chunk-index vector at the moment a
// flush completed.
type Manifest struct {
	TypeName     string
	ChunkIndices [5]int64
}

func (m Manifest) appendBytes(buf *bytes.Buffer) {
	buf.WriteString(m.TypeName)
	buf.WriteByte(0)
	for _, idx := range m.ChunkIndices {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(idx))
		buf.Write(b[:])
	}
}

func serialize(manifests []Manifest) []byte {
	var buf bytes.Buffer
	for _, m := range manifests {
		m.appendBytes(&buf)
	}
	return buf.Bytes()
}

// UnsafeKey is the fixed, publicly-known key used when checkpoint signing
// is deliberately disabled (cmd/lodctl's -unsafe flag). It still produces a
// deterministic signature, which is enough to catch accidental corruption,
// but anyone can forge it, so it must never be used for anything that
// matters beyond local development.
var UnsafeKey = make([]byte, 32)

// Checkpointer signs and verifies manifests against a single sidecar file
// next to a store, using a keyed BLAKE2b hash.
type Checkpointer struct {
	path string
	key  []byte
}

// New returns a Checkpointer that reads/writes its sidecar at path, signing
// with key. key may be checkpoint.UnsafeKey for a fixed, non-secret key.
func New(path string, key []byte) *Checkpointer {
	return &Checkpointer{path: path, key: key}
}

func (c *Checkpointer) sign(manifests []Manifest) (string, error) {
	h, err := blake2b.New256(c.key)
	if err != nil {
		return "", fmt.Errorf("checkpoint: construct hash: %w", err)
	}
	h.Write(serialize(manifests))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write signs manifests and overwrites the sidecar file with the resulting
// hex-encoded signature.
func (c *Checkpointer) Write(manifests []Manifest) error {
	sig, err := c.sign(manifests)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, []byte(sig), 0o644); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", c.path, err)
	}
	return nil
}

// Verify recomputes the signature for manifests and compares it against the
// sidecar file's contents. A missing sidecar file is treated as a mismatch,
// not as "nothing to verify", since a store that was ever checkpointed
// should always have one.
func (c *Checkpointer) Verify(manifests []Manifest) error {
	want, err := c.sign(manifests)
	if err != nil {
		return err
	}
	got, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrMismatch, c.path, err)
	}
	if string(got) != want {
		return fmt.Errorf("%w: %s", ErrMismatch, c.path)
	}
	return nil
}
