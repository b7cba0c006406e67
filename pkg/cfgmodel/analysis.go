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

package cfgmodel

// NoDominator marks the root of a DominatorTree/PostDominatorTree: the
// entry block has no immediate dominator, and the synthetic exit sink
// has no immediate post-dominator.
const NoDominator = -1

// DominatorTree holds, for every block index, its immediate dominator
// (NoDominator for the CFG's entry block). Derived on demand by
// pkg/analysis.Dominators; never persisted.
type DominatorTree struct {
	Idom []int
}

// IsDominatedBy reports whether a dominates b (a == b counts as true,
// following the standard reflexive definition of dominance).
func (t *DominatorTree) IsDominatedBy(b, a int) bool {
	for n := b; ; {
		if n == a {
			return true
		}
		if t.Idom[n] == NoDominator {
			return n == a
		}
		n = t.Idom[n]
	}
}

// Children returns the blocks whose immediate dominator is i, i.e. i's
// children in the dominator tree.
func (t *DominatorTree) Children(i int) []int {
	var kids []int
	for n, idom := range t.Idom {
		if idom == i && n != i {
			kids = append(kids, n)
		}
	}
	return kids
}

// PostDominatorTree mirrors DominatorTree over the reverse CFG, computed
// with a synthetic sink node joining all exit blocks. Ipdom is indexed
// the same way as the CFG's blocks; the synthetic sink itself is not a
// member of this array.
type PostDominatorTree struct {
	Ipdom []int
}

// IsPostDominatedBy reports whether a post-dominates b. Every exit
// block's immediate post-dominator is the synthetic sink used to
// compute Ipdom (an index one past the end of this slice); reaching it
// ends the walk exactly like NoDominator would, since the sink holds no
// block reachable by any further query.
func (t *PostDominatorTree) IsPostDominatedBy(b, a int) bool {
	for n := b; n >= 0 && n < len(t.Ipdom); {
		if n == a {
			return true
		}
		next := t.Ipdom[n]
		if next == NoDominator {
			return false
		}
		n = next
	}
	return false
}

// DominanceFrontier maps each block to the set of blocks at which its
// dominance ends — the join points of Cytron et al.'s DF construction.
type DominanceFrontier struct {
	Frontier [][]int
}

// NaturalLoop is a single-entry loop recovered from a back edge: Header
// dominates every block in Body, and every block in Body can reach some
// back-edge source without passing back through Header.
type NaturalLoop struct {
	Header      int
	BackEdges   []int // block indices that have an edge back to Header
	Body        []int
	NestingLevel int
}
