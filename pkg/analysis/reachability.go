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

// Reachable returns the local indices reachable from cfg's entry block
// by forward BFS, in ascending order.
func Reachable(cfg *cfgmodel.CFG) []int {
	return reachableFrom(cfg, cfg.EntryIndex)
}

// reachableFrom returns the blocks reachable from start by forward BFS,
// in ascending local-index order.
func reachableFrom(cfg *cfgmodel.CFG, start int) []int {
	visited := make([]bool, cfg.NumBlocks())
	queue := []int{start}
	visited[start] = true

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range cfg.Successors(u) {
			if !visited[v] {
				visited[v] = true
				queue = append(queue, v)
			}
		}
	}

	var out []int
	for i, v := range visited {
		if v {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Unreachable returns every block not reachable from cfg's entry.
func Unreachable(cfg *cfgmodel.CFG) []int {
	reach := map[int]bool{}
	for _, r := range Reachable(cfg) {
		reach[r] = true
	}
	var out []int
	for i := 0; i < cfg.NumBlocks(); i++ {
		if !reach[i] {
			out = append(out, i)
		}
	}
	return out
}

// CanReach reports whether b is reachable from a within cfg.
func CanReach(cfg *cfgmodel.CFG, a, b int) bool {
	for _, r := range reachableFrom(cfg, a) {
		if r == b {
			return true
		}
	}
	return false
}
