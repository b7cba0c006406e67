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

package analysis

import (
	"sort"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// DominanceFrontiers computes DF(n) for every block per Cytron et al.:
// DF(n) = { y | exists predecessor p of y such that n dominates p and n
// does not strictly dominate y }. Loop headers can appear in their own
// frontier; that self-membership is exactly the signature of a back
// edge. Implemented as the standard runner-up-to-idom(y) walk.
func DominanceFrontiers(cfg *cfgmodel.CFG, dt *cfgmodel.DominatorTree) *cfgmodel.DominanceFrontier {
	n := cfg.NumBlocks()
	df := make([][]int, n)
	dfSet := make([]map[int]bool, n)
	for i := range dfSet {
		dfSet[i] = map[int]bool{}
	}

	for y := 0; y < n; y++ {
		preds := cfg.Predecessors(y)
		if len(preds) < 2 {
			continue
		}
		idomY := dt.Idom[y]
		for _, p := range preds {
			runner := p
			for runner != cfgmodel.NoDominator && runner != idomY {
				dfSet[runner][y] = true
				runner = dt.Idom[runner]
			}
		}
	}

	for i := 0; i < n; i++ {
		for y := range dfSet[i] {
			df[i] = append(df[i], y)
		}
		sort.Ints(df[i])
	}

	return &cfgmodel.DominanceFrontier{Frontier: df}
}

// IteratedFrontier computes DF+(S), the closure of DominanceFrontiers
// over a starting block set, the canonical phi-placement set for a
// variable defined across S.
func IteratedFrontier(df *cfgmodel.DominanceFrontier, seed []int) []int {
	result := map[int]bool{}
	worklist := append([]int(nil), seed...)

	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, y := range df.Frontier[n] {
			if !result[y] {
				result[y] = true
				worklist = append(worklist, y)
			}
		}
	}

	out := make([]int, 0, len(result))
	for y := range result {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
