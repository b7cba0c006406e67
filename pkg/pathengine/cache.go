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

package pathengine

import (
	"context"

	"github.com/oldnordic/mirage/pkg/analysis"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// CacheResult reports whether PathsFor served from cache or recomputed.
type CacheResult struct {
	Paths    []cfgmodel.Path
	FromCache bool
	BoundedHit bool
}

// PathsFor returns cfg's enumerated paths, using the store's cache when
// the function's content hash has not changed since the cache was
// populated — the same hash-compare-and-resync discipline the teacher's
// HashDeltaDetector.DetectChanges uses for incremental re-indexing,
// applied here to path caching instead of file hashing.
//
// On a cache hit, cached rows are returned as-is. On a miss (hash
// mismatch or no prior cache), paths are re-enumerated and the adapter
// atomically replaces the function's cache with the new set plus the
// current hash.
func PathsFor(ctx context.Context, adapter store.Adapter, cfg *cfgmodel.CFG, limits Limits) (CacheResult, error) {
	currentHash := FunctionHash(cfg)

	storedHash, ok, err := adapter.FunctionHash(ctx, cfg.FunctionID)
	if err != nil {
		return CacheResult{}, err
	}
	if ok && storedHash == currentHash && !limits.IncludeUnreachable {
		cached, err := adapter.CachedPaths(ctx, cfg.FunctionID)
		if err != nil {
			return CacheResult{}, err
		}
		if cached != nil {
			return CacheResult{Paths: toModelPaths(cfg.FunctionID, cached), FromCache: true}, nil
		}
	}

	reach := reachSet(cfg)
	result := Enumerate(cfg, limits, reach)

	// include_unreachable is a diagnostic, not-for-cache mode: it
	// changes which paths are emitted without changing the function's
	// steady-state cache contents, so skip writing through in that case.
	if !limits.IncludeUnreachable {
		rows := toCachedPaths(result.Paths, currentHash)
		if err := adapter.ReplacePaths(ctx, cfg.FunctionID, rows, currentHash); err != nil {
			return CacheResult{}, err
		}
	}

	return CacheResult{Paths: result.Paths, BoundedHit: result.BoundedHit}, nil
}

func reachSet(cfg *cfgmodel.CFG) map[int]bool {
	m := make(map[int]bool, cfg.NumBlocks())
	for _, r := range analysis.Reachable(cfg) {
		m[r] = true
	}
	return m
}

func toCachedPaths(paths []cfgmodel.Path, fnHash cfgmodel.FunctionHash) []store.CachedPath {
	out := make([]store.CachedPath, len(paths))
	for i, p := range paths {
		out[i] = store.CachedPath{
			Fingerprint:  Fingerprint(&p),
			Kind:         p.Kind,
			Blocks:       p.Blocks,
			FunctionHash: fnHash,
		}
	}
	return out
}

func toModelPaths(functionID int64, cached []store.CachedPath) []cfgmodel.Path {
	out := make([]cfgmodel.Path, len(cached))
	for i, c := range cached {
		out[i] = cfgmodel.Path{
			FunctionID:  functionID,
			Blocks:      c.Blocks,
			Kind:        c.Kind,
			Fingerprint: c.Fingerprint,
			FnHash:      c.FunctionHash,
		}
	}
	return out
}

// Invalidate unconditionally deletes the cached paths for the function
// functionID, e.g. in response to an external re-index notification.
func Invalidate(ctx context.Context, adapter store.Adapter, functionID int64) error {
	return adapter.InvalidatePaths(ctx, functionID)
}
