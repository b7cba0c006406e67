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
	"fmt"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// VerifyResult reports whether a cached path fingerprint still holds
// against the live CFG, and why not when it doesn't.
type VerifyResult struct {
	Valid  bool
	Reason string
}

// Verify locates the cached row for fingerprint and confirms: every
// consecutive pair of blocks is a directed edge in the current CFG, the
// first block is entry-reachable, the last is a terminal block, and the
// row's stored function hash still matches the current one.
func Verify(ctx context.Context, adapter store.Adapter, cfg *cfgmodel.CFG, fingerprint cfgmodel.PathFingerprint) (VerifyResult, error) {
	cached, err := adapter.CachedPaths(ctx, cfg.FunctionID)
	if err != nil {
		return VerifyResult{}, err
	}

	var row *store.CachedPath
	for i := range cached {
		if cached[i].Fingerprint == fingerprint {
			row = &cached[i]
			break
		}
	}
	if row == nil {
		return VerifyResult{Valid: false, Reason: "fingerprint not present in cache"}, nil
	}

	currentHash := FunctionHash(cfg)
	if row.FunctionHash != currentHash {
		return VerifyResult{Valid: false, Reason: "function hash has changed since this path was cached"}, nil
	}

	if len(row.Blocks) == 0 {
		return VerifyResult{Valid: false, Reason: "cached path has no blocks"}, nil
	}

	reach := reachSet(cfg)
	if !reach[row.Blocks[0]] {
		return VerifyResult{Valid: false, Reason: "first block is not entry-reachable"}, nil
	}

	last := row.Blocks[len(row.Blocks)-1]
	if !isTerminalBlock(cfg, last) {
		return VerifyResult{Valid: false, Reason: "last block is not a terminal block"}, nil
	}

	for i := 0; i+1 < len(row.Blocks); i++ {
		if !hasEdge(cfg, row.Blocks[i], row.Blocks[i+1]) {
			return VerifyResult{Valid: false, Reason: fmt.Sprintf("no edge %d -> %d in the current CFG", row.Blocks[i], row.Blocks[i+1])}, nil
		}
	}

	return VerifyResult{Valid: true}, nil
}

func hasEdge(cfg *cfgmodel.CFG, from, to int) bool {
	for _, ei := range cfg.Out[from] {
		if cfg.Edges[ei].To == to {
			return true
		}
	}
	return false
}
