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

// NaturalLoops finds every back edge u -> h where h dominates u, and
// merges back edges that share a header into one NaturalLoop (body is
// the union). Nesting level is the count of other loops whose body
// strictly contains this loop's header.
func NaturalLoops(cfg *cfgmodel.CFG, dt *cfgmodel.DominatorTree) []cfgmodel.NaturalLoop {
	byHeader := map[int]*cfgmodel.NaturalLoop{}
	var headers []int

	for _, e := range cfg.Edges {
		u, h := e.From, e.To
		if !dt.IsDominatedBy(u, h) {
			continue
		}
		loop, ok := byHeader[h]
		if !ok {
			loop = &cfgmodel.NaturalLoop{Header: h}
			byHeader[h] = loop
			headers = append(headers, h)
		}
		loop.BackEdges = append(loop.BackEdges, u)
		body := loopBody(cfg, h, u)
		loop.Body = unionSorted(loop.Body, body)
	}

	sort.Ints(headers)
	loops := make([]cfgmodel.NaturalLoop, len(headers))
	for i, h := range headers {
		loops[i] = *byHeader[h]
		sort.Ints(loops[i].BackEdges)
	}

	for i := range loops {
		level := 0
		for j := range loops {
			if i == j {
				continue
			}
			if containsStrict(loops[j].Body, loops[i].Header) {
				level++
			}
		}
		loops[i].NestingLevel = level
	}

	return loops
}

// loopBody computes {h} ∪ { n | n reaches u without passing through h },
// by reverse-walking from u with h excluded as a pass-through node.
func loopBody(cfg *cfgmodel.CFG, h, u int) []int {
	body := map[int]bool{h: true, u: true}
	stack := []int{u}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == h {
			continue
		}
		for _, p := range cfg.Predecessors(n) {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	out := make([]int, 0, len(body))
	for n := range body {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func unionSorted(a, b []int) []int {
	set := map[int]bool{}
	for _, x := range a {
		set[x] = true
	}
	for _, x := range b {
		set[x] = true
	}
	out := make([]int, 0, len(set))
	for x := range set {
		out = append(out, x)
	}
	sort.Ints(out)
	return out
}

// containsStrict reports whether header appears in another loop's body.
// Callers only invoke this across distinct loops (i != j), so membership
// alone is the correct containment test.
func containsStrict(body []int, header int) bool {
	idx := sort.SearchInts(body, header)
	return idx < len(body) && body[idx] == header
}
