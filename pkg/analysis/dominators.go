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

// Package analysis implements pure, deterministic analyses over a loaded
// cfgmodel.CFG: dominator and post-dominator trees, dominance frontiers,
// reachability, natural loop recovery, and structural pattern recovery.
// No function here mutates its CFG argument or touches storage.
package analysis

import "github.com/oldnordic/mirage/pkg/cfgmodel"

// reversePostorder returns the reverse-postorder traversal of the CFG
// starting from start, following Successors. Unreachable blocks are
// absent from the result; order[0] == start when start reaches itself.
func reversePostorder(n int, start int, succ func(int) []int) ([]int, map[int]int) {
	visited := make([]bool, n)
	var post []int

	var visit func(int)
	visit = func(u int) {
		visited[u] = true
		for _, v := range succ(u) {
			if !visited[v] {
				visit(v)
			}
		}
		post = append(post, u)
	}
	visit(start)

	order := make([]int, len(post))
	rpoNum := make(map[int]int, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
		rpoNum[b] = 0
	}
	for i, b := range order {
		rpoNum[b] = i
	}
	return order, rpoNum
}

// intersect walks two dominator chains up to their common ancestor,
// the core step of the Cooper-Harvey-Kennedy iterative algorithm.
func intersect(idom []int, rpoNum map[int]int, b1, b2 int) int {
	for b1 != b2 {
		for rpoNum[b1] > rpoNum[b2] {
			b1 = idom[b1]
		}
		for rpoNum[b2] > rpoNum[b1] {
			b2 = idom[b2]
		}
	}
	return b1
}

// DominatorsOverGraph runs the same Cooper-Harvey-Kennedy fixpoint over
// any graph of n dense-indexed nodes given as forward (succ) and
// reverse (pred) adjacency, rooted at entry. Dominators and
// pkg/callgraph's inter-procedural condensation dominance (`dominators
// --inter-procedural`) both delegate to this; it carries no
// cfgmodel-specific assumptions.
func DominatorsOverGraph(n, entry int, succ, pred func(int) []int) []int {
	order, rpoNum := reversePostorder(n, entry, succ)

	idom := make([]int, n)
	for i := range idom {
		idom[i] = cfgmodel.NoDominator
	}
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == entry {
				continue
			}
			newIdom := cfgmodel.NoDominator
			for _, p := range pred(b) {
				if idom[p] == cfgmodel.NoDominator {
					continue
				}
				if newIdom == cfgmodel.NoDominator {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoNum, newIdom, p)
			}
			if newIdom != idom[b] {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	idom[entry] = cfgmodel.NoDominator
	return idom
}

// Dominators computes the dominator tree of cfg using the iterative,
// reverse-postorder algorithm of Cooper, Harvey & Kennedy — the same
// iterative-fixpoint shape the Go compiler's own SSA dominator pass
// uses (sparse tree over Idom/children, not a one-shot Lengauer-Tarjan
// pass). Contract: dominates(entry, n) for every reachable n;
// dominates(n, n); the relation is transitive and antisymmetric modulo
// equality.
func Dominators(cfg *cfgmodel.CFG) *cfgmodel.DominatorTree {
	idom := DominatorsOverGraph(cfg.NumBlocks(), cfg.EntryIndex, cfg.Successors, cfg.Predecessors)
	return &cfgmodel.DominatorTree{Idom: idom}
}

// PostDominators computes the post-dominator tree of cfg by running the
// same fixpoint over the reverse graph, with a synthetic sink joining
// every exit block. The synthetic sink itself never appears in the
// returned Ipdom array; its only role is giving exit blocks a common
// ancestor.
func PostDominators(cfg *cfgmodel.CFG) *cfgmodel.PostDominatorTree {
	n := cfg.NumBlocks()
	sink := n // synthetic node index

	predOf := func(u int) []int {
		if u == sink {
			return cfg.ExitIndices
		}
		return cfg.Predecessors(u)
	}
	succOf := func(u int) []int {
		if u == sink {
			return nil
		}
		if cfg.IsExit(u) {
			return []int{sink}
		}
		return cfg.Successors(u)
	}

	order, rpoNum := reversePostorder(n+1, sink, predOf)

	ipdom := make([]int, n+1)
	for i := range ipdom {
		ipdom[i] = cfgmodel.NoDominator
	}
	ipdom[sink] = sink

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == sink {
				continue
			}
			newIdom := cfgmodel.NoDominator
			for _, s := range succOf(b) {
				if ipdom[s] == cfgmodel.NoDominator {
					continue
				}
				if newIdom == cfgmodel.NoDominator {
					newIdom = s
					continue
				}
				newIdom = intersect(ipdom, rpoNum, newIdom, s)
			}
			if newIdom != ipdom[b] {
				ipdom[b] = newIdom
				changed = true
			}
		}
	}

	ipdom[sink] = cfgmodel.NoDominator
	return &cfgmodel.PostDominatorTree{Ipdom: ipdom[:n]}
}
