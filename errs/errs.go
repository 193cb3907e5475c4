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

// Package errs holds the sentinel errors shared across the engine's
// packages that don't already have an obvious home: a dynamic type handed
// to a processor that doesn't match what it was built for, and internal
// invariant violations that implementations should treat as bugs rather
// than recoverable conditions.
package errs

import "errors"

var (
	// ErrTypeMismatch is returned when a reading is handed to a processor
	// whose declared payload type it does not match, when a value handed to
	// a table's Insert is not of the table's declared type, or when Add is
	// called for a type with no registered processor.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLogic marks a violated internal invariant: a coarser tier closing
	// with no inputs, a backwards chunk index that wasn't caught earlier,
	// or any other condition a correct caller should never be able to
	// trigger. Treat ErrLogic as a bug report, not a recoverable error.
	ErrLogic = errors.New("internal invariant violation")
)
