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

// Package pathengine enumerates bounded entry-to-exit paths through a
// loaded CFG, classifies and fingerprints them, and maintains the
// function-hash-gated path cache through a store.Adapter. Content
// hashing uses crypto/sha256 rather than a dedicated hash like BLAKE3:
// no such dependency appears anywhere in the example repos this module
// was grounded on, and the teacher's own id-generation idiom
// (pkg/ingestion/schema.go's GenerateImportID/GenerateTypeID) already
// leans on sha256 for exactly this kind of content addressing.
package pathengine

import (
	"sort"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// Limits configures bounded DFS enumeration (spec.md §4.4).
type Limits struct {
	MaxLength          int
	MaxPaths           int
	RevisitCap         int
	IncludeUnreachable bool
}

// DefaultLimits returns the spec-mandated defaults.
func DefaultLimits() Limits {
	return Limits{MaxLength: 1000, MaxPaths: 10000, RevisitCap: 1, IncludeUnreachable: false}
}

// Result is the outcome of one Enumerate call.
type Result struct {
	Paths     []cfgmodel.Path
	BoundedHit bool
}

// Enumerate performs a bounded DFS from cfg's entry (and, when
// IncludeUnreachable is set, also from each block that is not in
// reachable), emitting one fingerprinted Path per start-to-terminal walk. Successor iteration
// order is ascending edge target index, broken by edge-kind ordinal on
// ties, so output order is deterministic across runs.
func Enumerate(cfg *cfgmodel.CFG, limits Limits, reachable map[int]bool) Result {
	var res Result
	visitCount := make([]int, cfg.NumBlocks())

	var walk func(path []int)
	walk = func(path []int) {
		if res.BoundedHit {
			return
		}
		if len(res.Paths) >= limits.MaxPaths {
			res.BoundedHit = true
			return
		}

		cur := path[len(path)-1]
		if len(path) > limits.MaxLength {
			return
		}

		succ := orderedSuccessors(cfg, cur)
		if len(succ) == 0 || isTerminalBlock(cfg, cur) {
			kind := Classify(cfg, path, reachable)
			p := cfgmodel.Path{FunctionID: cfg.FunctionID, Blocks: append([]int(nil), path...), Kind: kind}
			p.Fingerprint = Fingerprint(&p)
			res.Paths = append(res.Paths, p)
			return
		}

		for _, s := range succ {
			if visitCount[s] >= limits.RevisitCap {
				continue
			}
			visitCount[s]++
			walk(append(path, s))
			visitCount[s]--
		}
	}

	starts := []int{cfg.EntryIndex}
	if limits.IncludeUnreachable {
		for i := 0; i < cfg.NumBlocks(); i++ {
			if !reachable[i] {
				starts = append(starts, i)
			}
		}
	}

	for _, start := range starts {
		visitCount[start]++
		walk([]int{start})
		visitCount[start]--
		if res.BoundedHit {
			break
		}
	}

	return res
}

// isTerminalBlock reports whether a block ends a path: an exit block,
// or a block with no outgoing edges.
func isTerminalBlock(cfg *cfgmodel.CFG, b int) bool {
	return cfg.IsExit(b) || len(cfg.Out[b]) == 0
}

// orderedSuccessors returns b's successors sorted by ascending target
// index, then by edge-kind ordinal to break ties between parallel
// edges.
func orderedSuccessors(cfg *cfgmodel.CFG, b int) []int {
	type succEdge struct {
		to   int
		kind cfgmodel.EdgeKind
	}
	var edges []succEdge
	for _, ei := range cfg.Out[b] {
		e := cfg.Edges[ei]
		edges = append(edges, succEdge{to: e.To, kind: e.Kind})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].to != edges[j].to {
			return edges[i].to < edges[j].to
		}
		return edges[i].kind < edges[j].kind
	})
	out := make([]int, len(edges))
	for i, e := range edges {
		out[i] = e.to
	}
	return out
}
