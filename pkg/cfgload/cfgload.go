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

// Package cfgload builds an immutable cfgmodel.CFG from the raw rows a
// store.Adapter returns, assigning dense local indices, decoding
// terminators, and deriving edges when the store has none.
package cfgload

import (
	"context"
	"encoding/json"
	"log/slog"

	merrors "github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// Load resolves ref against adapter, fetches its blocks and edges, and
// assembles an immutable CFG following the six-step procedure: dense
// indexing, terminator decoding, edge derivation, entry/exit
// identification, and source-location attachment.
func Load(ctx context.Context, adapter store.Adapter, ref store.FunctionRef) (*cfgmodel.CFG, *cfgmodel.Function, error) {
	fn, err := adapter.ResolveFunction(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if fn == nil {
		name := ref.Name
		if name == "" {
			name = refString(ref)
		}
		return nil, nil, merrors.ErrNotFound(name)
	}

	rawBlocks, err := adapter.Blocks(ctx, fn.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(rawBlocks) == 0 {
		return nil, nil, merrors.ErrNotIndexed(fn.Name)
	}

	// Step 1: dense local indexing in stable primary-key order. Blocks
	// is already adapter-sorted by stable_order; index 0..N-1 here.
	blocks := make([]cfgmodel.BasicBlock, len(rawBlocks))
	idOfBlock := make(map[int64]int, len(rawBlocks))
	for i, rb := range rawBlocks {
		idOfBlock[rb.BlockID] = i
		term, warn := decodeTerminator(rb.TerminatorJSON)
		if warn != "" {
			slog.Warn("cfgload: terminator decode fallback", "function", fn.Name, "block_id", rb.BlockID, "reason", warn)
		}
		kind := decodeBlockKind(rb.Kind)
		var source *cfgmodel.SourceRange
		if rb.SourceFile != "" {
			source = &cfgmodel.SourceRange{
				FilePath:  rb.SourceFile,
				StartLine: rb.StartLine,
				StartCol:  rb.StartCol,
				EndLine:   rb.EndLine,
				EndCol:    rb.EndCol,
			}
		}
		blocks[i] = cfgmodel.BasicBlock{LocalIndex: i, Kind: kind, Terminator: term, Source: source}
	}

	// Step 3: explicit edges take priority over derived edges.
	rawEdges, err := adapter.Edges(ctx, fn.ID)
	if err != nil {
		return nil, nil, err
	}

	var edges []cfgmodel.Edge
	if len(rawEdges) > 0 {
		edges = convertExplicitEdges(rawEdges, idOfBlock)
	} else {
		edges = deriveEdges(blocks)
	}

	cfg := &cfgmodel.CFG{
		FunctionID:   fn.ID,
		FunctionName: fn.Name,
		Blocks:       blocks,
		Edges:        edges,
	}
	cfg.Build()

	// Step 4: identify entry.
	entry, err := identifyEntry(cfg, fn.Name)
	if err != nil {
		return nil, nil, err
	}
	cfg.EntryIndex = entry

	// Step 5: identify exits.
	exits := identifyExits(cfg)
	if len(exits) == 0 {
		return nil, nil, merrors.ErrNoExit(fn.Name)
	}
	cfg.ExitIndices = exits

	markBackEdges(cfg)

	return cfg, fn, nil
}

func refString(ref store.FunctionRef) string {
	b, _ := json.Marshal(ref)
	return string(b)
}

func decodeBlockKind(s string) cfgmodel.BlockKind {
	switch s {
	case "Entry":
		return cfgmodel.BlockEntry
	case "Exit":
		return cfgmodel.BlockExit
	default:
		return cfgmodel.BlockNormal
	}
}

// identifyEntry returns the unique block of kind Entry, or local index 0
// by convention when no block carries that kind explicitly.
func identifyEntry(cfg *cfgmodel.CFG, functionName string) (int, error) {
	entryIdx := -1
	count := 0
	for _, b := range cfg.Blocks {
		if b.Kind == cfgmodel.BlockEntry {
			entryIdx = b.LocalIndex
			count++
		}
	}
	if count == 1 {
		return entryIdx, nil
	}
	if count == 0 && len(cfg.Blocks) > 0 {
		return 0, nil
	}
	return 0, merrors.ErrNoEntry(functionName)
}

// identifyExits returns every block with terminator Return/Abort/
// Unreachable, plus any block with no outgoing edges.
func identifyExits(cfg *cfgmodel.CFG) []int {
	seen := make(map[int]bool)
	var out []int
	for _, b := range cfg.Blocks {
		isTerminal := b.Terminator.Tag == cfgmodel.TermReturn ||
			b.Terminator.Tag == cfgmodel.TermAbort ||
			b.Terminator.Tag == cfgmodel.TermUnreachable
		noOutgoing := len(cfg.Out[b.LocalIndex]) == 0
		if (isTerminal || noOutgoing) && !seen[b.LocalIndex] {
			seen[b.LocalIndex] = true
			out = append(out, b.LocalIndex)
		}
	}
	return out
}

// markBackEdges flags edges u->h where h is still on the DFS stack from
// entry (h is u itself or one of its DFS ancestors) as back edges, and
// sets their kind to LoopBack. This is a cheap pre-pass whose flags are
// used for rendering (cmd/mirage cfg); pkg/analysis.NaturalLoops does
// not read them and finds back edges from the dominator tree instead.
func markBackEdges(cfg *cfgmodel.CFG) {
	discovered := make([]int, len(cfg.Blocks))
	for i := range discovered {
		discovered[i] = -1
	}
	onStack := make([]bool, len(cfg.Blocks))
	clock := 0

	var visit func(n int)
	visit = func(n int) {
		discovered[n] = clock
		clock++
		onStack[n] = true
		for _, succIdx := range cfg.Out[n] {
			to := cfg.Edges[succIdx].To
			if discovered[to] == -1 {
				visit(to)
			} else if onStack[to] {
				cfg.Edges[succIdx].IsBackEdge = true
				cfg.Edges[succIdx].Kind = cfgmodel.EdgeLoopBack
			}
		}
		onStack[n] = false
	}
	if cfg.EntryIndex >= 0 && cfg.EntryIndex < len(cfg.Blocks) {
		visit(cfg.EntryIndex)
	}
}
