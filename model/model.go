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

// Package model is the thin registry in front of the lod package: one
// DataModel per store file, one lod.Processor per registered reading type,
// dispatch by the reading's Go type instead of the RTTI dynamic type the
// system this engine is modeled on dispatches on.
//
// Go's generics can't express a method like "Add[T any](r Reading[T])" on a
// concrete receiver, so RegisterType/Add/GetRange are package-level generic
// functions taking *DataModel as their first argument, the same shape
// golang.org/x/exp/slices uses for its own generic helpers.
package model

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/chronofold/lodengine/checkpoint"
	"github.com/chronofold/lodengine/errs"
	"github.com/chronofold/lodengine/lod"
	"github.com/chronofold/lodengine/schema"
	"github.com/chronofold/lodengine/store"
	"github.com/chronofold/lodengine/tstamp"
)

// KeepRawMode selects whether a DataModel's processors retain the raw,
// per-reading rows alongside the LOD pyramid, or only the pyramid.
type KeepRawMode int

const (
	KeepRawDisabled KeepRawMode = iota
	KeepRawEnabled
)

// flusher is the type-erased view of a lod.Processor[T] the registry needs:
// enough to flush it and read back its chunk state for checkpointing.
type flusher interface {
	Flush(ctx context.Context) error
	ChunkIndices() [lod.NumTiers]int64
}

type registration struct {
	typeName string
	proc     flusher
}

// DataModel owns one store and the set of reading types registered against
// it. Per the engine's concurrency model it is not safe for concurrent use
// without external serialization; the mutex here is a convenience guard,
// not a substitute for caller discipline.
type DataModel struct {
	mu           sync.Mutex
	store        *store.Store
	keepRaw      bool
	regs         map[reflect.Type]*registration
	log          *log.Logger
	checkpointer *checkpoint.Checkpointer
}

// Option configures a DataModel at Init time.
type Option func(*DataModel)

// WithLogger overrides the default log.Default() logger.
func WithLogger(l *log.Logger) Option {
	return func(dm *DataModel) { dm.log = l }
}

// WithCheckpointKey enables checkpoint signing/verification with key. Without
// this option the DataModel does not sign or verify checkpoints at all.
func WithCheckpointKey(path string, key []byte) Option {
	return func(dm *DataModel) { dm.checkpointer = checkpoint.New(path, key) }
}

// Init opens the relational store at path and returns an empty registry
// ready for RegisterType calls.
func Init(path string, keepRaw KeepRawMode, opts ...Option) (*DataModel, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model init: %w", err)
	}
	dm := &DataModel{
		store:   st,
		keepRaw: keepRaw == KeepRawEnabled,
		regs:    make(map[reflect.Type]*registration),
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm, nil
}

// Close flushes every processor best-effort (logging, not returning, any
// failure -- mirroring the engine's destructor semantics) and closes the
// store. Call it exactly once, when the DataModel is no longer needed.
func (dm *DataModel) Close() {
	if err := dm.Flush(context.Background()); err != nil {
		dm.log.Printf("model: final flush failed: %v", err)
	}
	if err := dm.store.Close(); err != nil {
		dm.log.Printf("model: close store failed: %v", err)
	}
}

// RegisterType constructs a lod.Processor[T], initializes its pyramid of
// tables, and inserts it into the type -> processor map under typeName.
// Registering the same Go type T twice is an error.
func RegisterType[T any](dm *DataModel, typeName string, summaryFn lod.SummaryFunction[T]) error {
	t := reflect.TypeOf((*T)(nil)).Elem()

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.regs[t]; exists {
		return fmt.Errorf("%w: type %s is already registered", schema.ErrUnsupportedSchema, t)
	}
	p, err := lod.NewProcessor[T](dm.store, typeName, dm.keepRaw, summaryFn)
	if err != nil {
		return fmt.Errorf("registering %s: %w", typeName, err)
	}
	dm.regs[t] = &registration{typeName: typeName, proc: p}
	return nil
}

func newRequestID() string {
	return uuid.New().String()
}

func lookup[T any](dm *DataModel) (*lod.Processor[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	reg, ok := dm.regs[t]
	if !ok {
		return nil, fmt.Errorf("%w: no processor registered for %s", errs.ErrTypeMismatch, t)
	}
	p, ok := reg.proc.(*lod.Processor[T])
	if !ok {
		return nil, fmt.Errorf("%w: processor for %s has unexpected concrete type", errs.ErrTypeMismatch, t)
	}
	return p, nil
}

// Add dispatches r to the processor registered for T.
func Add[T any](ctx context.Context, dm *DataModel, r lod.Reading[T]) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	p, err := lookup[T](dm)
	if err != nil {
		return err
	}
	return p.Add(ctx, r)
}

// GetRange dispatches to the processor registered for T and tags the call
// with a request id for logging, mirroring how the system this engine is
// modeled on tags its own query path.
func GetRange[T any](ctx context.Context, dm *DataModel, start, end tstamp.TimeStamp, n int) ([]lod.ReadingSummary[T], error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	p, err := lookup[T](dm)
	if err != nil {
		return nil, err
	}

	reqID := newRequestID()
	dm.log.Printf("get_range request=%s n=%d", reqID, n)
	out, err := p.GetRange(ctx, start, end, n)
	if err != nil {
		dm.log.Printf("get_range request=%s failed: %v", reqID, err)
		return nil, err
	}
	dm.log.Printf("get_range request=%s ok", reqID)
	return out, nil
}

// Flush walks every registered processor in a deterministic order (sorted
// by registered type name, since flush order is externally observable
// through checkpoint hashes and through which tables receive writes first)
// and flushes each. If a checkpointer is configured, it signs the resulting
// chunk-index vectors afterward.
func (dm *DataModel) Flush(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	names := make([]string, 0, len(dm.regs))
	byName := make(map[string]*registration, len(dm.regs))
	for _, reg := range dm.regs {
		names = append(names, reg.typeName)
		byName[reg.typeName] = reg
	}
	slices.Sort(names)

	manifests := make([]checkpoint.Manifest, 0, len(names))
	for _, name := range names {
		reg := byName[name]
		if err := reg.proc.Flush(ctx); err != nil {
			return fmt.Errorf("flushing %s: %w", name, err)
		}
		manifests = append(manifests, checkpoint.Manifest{
			TypeName:     name,
			ChunkIndices: reg.proc.ChunkIndices(),
		})
	}

	if dm.checkpointer != nil {
		if err := dm.checkpointer.Write(manifests); err != nil {
			return fmt.Errorf("writing checkpoint: %w", err)
		}
	}
	return nil
}

// Verify recomputes the checkpoint signature for the current in-memory
// chunk state of every registered processor and compares it against the
// on-disk sidecar. Call it once at startup, after registering every type
// the store file was written with, before serving any queries.
func (dm *DataModel) Verify() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.checkpointer == nil {
		return nil
	}

	names := make([]string, 0, len(dm.regs))
	byName := make(map[string]*registration, len(dm.regs))
	for _, reg := range dm.regs {
		names = append(names, reg.typeName)
		byName[reg.typeName] = reg
	}
	slices.Sort(names)

	manifests := make([]checkpoint.Manifest, 0, len(names))
	for _, name := range names {
		reg := byName[name]
		manifests = append(manifests, checkpoint.Manifest{
			TypeName:     name,
			ChunkIndices: reg.proc.ChunkIndices(),
		})
	}
	return dm.checkpointer.Verify(manifests)
}
