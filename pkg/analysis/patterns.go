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

import "github.com/oldnordic/mirage/pkg/cfgmodel"

// PatternKind classifies a structurally-recovered control pattern.
type PatternKind int

const (
	PatternIf PatternKind = iota
	PatternIfElse
	PatternSwitch
)

func (k PatternKind) String() string {
	switch k {
	case PatternIfElse:
		return "if/else"
	case PatternSwitch:
		return "switch"
	default:
		return "if"
	}
}

// Pattern is one structurally-recovered branch construct: the block
// whose terminator branches, its arm successors, and their common
// merge point (post-dominator), if one was found.
type Pattern struct {
	Kind    PatternKind
	Block   int
	Arms    []int
	Merge   int
	HasMerge bool
}

// Patterns recovers if/if-else and n-way switch constructs, purely from
// CFG shape. Every SwitchInt with at least two arms is reported; Merge
// and HasMerge carry the arms' nearest common post-dominator when one
// exists. A two-way SwitchInt is an if when one arm is the merge block
// itself or the arms share no merge (for example, one arm returns
// early), and an if/else otherwise; an n-way SwitchInt (n >= 3) is a
// switch. Recovery is structural, not semantic.
func Patterns(cfg *cfgmodel.CFG, pdt *cfgmodel.PostDominatorTree) []Pattern {
	var out []Pattern
	for _, b := range cfg.Blocks {
		if b.Terminator.Tag != cfgmodel.TermSwitchInt {
			continue
		}
		arms := switchArms(b)
		if len(arms) < 2 {
			continue
		}

		merge, ok := commonPostDominator(pdt, arms)
		kind := PatternSwitch
		if len(arms) == 2 {
			kind = PatternIf
			if !ok || arms[0] == merge || arms[1] == merge {
				kind = PatternIf
			} else {
				kind = PatternIfElse
			}
		}

		out = append(out, Pattern{Kind: kind, Block: b.LocalIndex, Arms: arms, Merge: merge, HasMerge: ok})
	}
	return out
}

func switchArms(b cfgmodel.BasicBlock) []int {
	arms := make([]int, 0, len(b.Terminator.SwitchTargets)+1)
	for _, t := range b.Terminator.SwitchTargets {
		arms = append(arms, t.Target)
	}
	arms = append(arms, b.Terminator.SwitchOtherwise)
	return arms
}

// commonPostDominator returns the nearest block that post-dominates
// every arm, if all arms share one.
func commonPostDominator(pdt *cfgmodel.PostDominatorTree, arms []int) (int, bool) {
	chain := func(n int) []int {
		var c []int
		for cur := n; cur >= 0 && cur < len(pdt.Ipdom); {
			c = append(c, cur)
			next := pdt.Ipdom[cur]
			if next == cfgmodel.NoDominator {
				break
			}
			cur = next
		}
		return c
	}

	first := chain(arms[0])
	inFirst := map[int]int{}
	for i, n := range first {
		inFirst[n] = i
	}

	best := -1
	bestDepth := -1
	for n, depth := range inFirst {
		matchesAll := true
		for _, a := range arms[1:] {
			if !containsInt(chain(a), n) {
				matchesAll = false
				break
			}
		}
		if matchesAll && (best == -1 || depth < bestDepth) {
			best = n
			bestDepth = depth
		}
	}
	return best, best != -1
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
