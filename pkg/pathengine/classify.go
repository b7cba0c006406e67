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

import "github.com/oldnordic/mirage/pkg/cfgmodel"

// Classify assigns a PathKind to a completed block sequence, by
// priority Unreachable > Error > Degenerate > Normal. reachable is
// cfg's entry-reachable set (nil treated as "every block reachable").
func Classify(cfg *cfgmodel.CFG, path []int, reachable map[int]bool) cfgmodel.PathKind {
	if reachable != nil {
		for _, b := range path {
			if !reachable[b] {
				return cfgmodel.PathUnreachable
			}
		}
	}

	last := path[len(path)-1]
	lastTerm := cfg.Blocks[last].Terminator.Tag
	if lastTerm == cfgmodel.TermAbort || lastTerm == cfgmodel.TermUnreachable {
		return cfgmodel.PathError
	}
	if traversesException(cfg, path) {
		return cfgmodel.PathError
	}

	if len(path) <= 1 || !hasBranch(cfg, path) {
		return cfgmodel.PathDegenerate
	}

	return cfgmodel.PathNormal
}

func traversesException(cfg *cfgmodel.CFG, path []int) bool {
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		for _, ei := range cfg.Out[from] {
			e := cfg.Edges[ei]
			if e.To == to && e.Kind == cfgmodel.EdgeException {
				return true
			}
		}
	}
	return false
}

// hasBranch reports whether the path passes through any block with
// more than one outgoing edge, i.e. reaches Exit "without branching"
// is false.
func hasBranch(cfg *cfgmodel.CFG, path []int) bool {
	for _, b := range path {
		if len(cfg.Out[b]) > 1 {
			return true
		}
	}
	return false
}
