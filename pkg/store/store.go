// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store defines the Adapter interface Mirage uses to read CFG
// facts and cache enumerated paths, independent of which physical
// database backs it. pkg/store/cozostore implements Adapter over the
// embedded CozoDB key-value-adjacency engine; pkg/store/sqlstore
// implements it over modernc.org/sqlite.
package store

import (
	"context"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// MinSchemaVersion is the oldest store schema Open will accept. Stores
// carrying an older schema_version row fail with ErrSchemaIncompatible.
const MinSchemaVersion = 1

// CurrentSchemaVersion is the schema version this build writes to a
// freshly initialized store.
const CurrentSchemaVersion = 1

// RawBlock is a function's basic block exactly as the store persisted
// it, before pkg/cfgload decodes its terminator and assigns dense
// local indices.
type RawBlock struct {
	BlockID        int64
	StableOrder    int64
	Kind           string
	TerminatorJSON string
	SourceFile     string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
}

// RawEdge is an explicit edge row exactly as the store persisted it.
type RawEdge struct {
	FromBlockID int64
	ToBlockID   int64
	Kind        string
	CaseValue   int64
}

// FunctionRef resolves a function by either numeric id or name; exactly
// one of ID or Name should be set by the caller.
type FunctionRef struct {
	ID   int64
	Name string
}

// CachedPath is one row of the path cache, as read back from storage.
type CachedPath struct {
	Fingerprint cfgmodel.PathFingerprint
	Kind        cfgmodel.PathKind
	Blocks      []int
	FunctionHash cfgmodel.FunctionHash
}

// CallEdge is one row of the optional inter-procedural call-graph table.
type CallEdge struct {
	CallerID int64
	CalleeID int64
}

// Stats summarizes a store's contents for the `status` subcommand.
type Stats struct {
	Functions int
	Blocks    int
	Edges     int
	Paths     int
	CallEdges int
}

// Adapter is the storage contract both backends satisfy. All methods
// accept a context so long scans can be cancelled; implementations must
// not retain ctx past the call.
type Adapter interface {
	// SchemaVersion reports the store's persisted schema_version.
	SchemaVersion(ctx context.Context) (int, error)

	// ResolveFunction looks up a function by id or by name. Name
	// resolution ties are broken by stable ordering (lowest id wins).
	ResolveFunction(ctx context.Context, ref FunctionRef) (*cfgmodel.Function, error)

	// Blocks returns every block belonging to fn, in stable primary-key
	// order. A function with no blocks yields an empty result and a nil
	// error; pkg/cfgload reports that case as ErrNotIndexed.
	Blocks(ctx context.Context, functionID int64) ([]RawBlock, error)

	// Edges returns explicit edge rows for fn, if the store has any.
	// An empty, nil-error result means "no explicit edges": the loader
	// must derive edges from terminators instead.
	Edges(ctx context.Context, functionID int64) ([]RawEdge, error)

	// FunctionHash reads the function-level content hash last stored
	// for fn, if any.
	FunctionHash(ctx context.Context, functionID int64) (cfgmodel.FunctionHash, bool, error)

	// SetFunctionHash upserts the function-level content hash for fn.
	SetFunctionHash(ctx context.Context, functionID int64, hash cfgmodel.FunctionHash) error

	// CachedPaths lists every cached path fingerprint and kind for fn.
	CachedPaths(ctx context.Context, functionID int64) ([]CachedPath, error)

	// ReplacePaths atomically deletes every cached path for fn and
	// inserts paths in a single transaction, then upserts fnHash.
	ReplacePaths(ctx context.Context, functionID int64, paths []CachedPath, fnHash cfgmodel.FunctionHash) error

	// InvalidatePaths unconditionally deletes every cached path for fn,
	// e.g. in response to an external re-index notification.
	InvalidatePaths(ctx context.Context, functionID int64) error

	// CallEdges returns the call-graph edges touching fn in the given
	// direction ("out" = fn is caller, "in" = fn is callee). Returns a
	// nil slice and nil error (not an error) when no call-graph table
	// exists in this store, so callers can degrade gracefully.
	CallEdges(ctx context.Context, functionID int64, direction string) ([]CallEdge, error)

	// HasCallGraph reports whether the store carries call-graph tables
	// at all, independent of whether any given function has edges.
	HasCallGraph(ctx context.Context) (bool, error)

	// AllFunctions lists every indexed function, ordered by id. Used by
	// commands that operate across the whole store: `unreachable
	// --within-functions`, `cycles`, `hotspots`, `dominators
	// --inter-procedural`.
	AllFunctions(ctx context.Context) ([]cfgmodel.Function, error)

	// FindPathOwner locates which function a cached path fingerprint
	// belongs to, for `verify --path-id` where the caller does not know
	// the owning function ahead of time. ok is false when no cache row
	// carries this fingerprint.
	FindPathOwner(ctx context.Context, fingerprint cfgmodel.PathFingerprint) (functionID int64, ok bool, err error)

	// Stats reports row counts across the store's tables for `status`.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the adapter.
	Close() error
}
