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

// Package callgraph provides Mirage's optional inter-procedural
// convenience operations over a store's call-graph tables: forward and
// reverse reachable-symbol BFS (grounded on the teacher's
// pkg/tools/trace.go searchFromSource), uncalled-function detection,
// and strongly-connected-component cycle/condensation analysis. Every
// operation degrades gracefully to a warning, never a hard error, when
// the store carries no call-graph data.
package callgraph

import (
	"context"
	"sort"

	"github.com/oldnordic/mirage/pkg/store"
)

// Direction selects which edge orientation Reachable walks.
type Direction string

const (
	DirectionOut Direction = "out" // forward: who fn calls, transitively
	DirectionIn  Direction = "in"  // reverse: who calls fn, transitively
)

// ReachableResult carries the BFS result plus the graceful-degradation
// flag callers should surface as a warning.
type ReachableResult struct {
	FunctionIDs   []int64
	CallGraphAbsent bool
}

// Reachable performs a depth-bounded BFS over the call graph from fn in
// the given direction, mirroring the node-cap/depth-cap BFS shape of
// the teacher's searchFromSource. maxDepth <= 0 means unbounded.
func Reachable(ctx context.Context, adapter store.Adapter, fn int64, dir Direction, maxDepth int) (ReachableResult, error) {
	has, err := adapter.HasCallGraph(ctx)
	if err != nil {
		return ReachableResult{}, err
	}
	if !has {
		return ReachableResult{CallGraphAbsent: true}, nil
	}

	visited := map[int64]bool{fn: true}
	type frontierNode struct {
		id    int64
		depth int
	}
	queue := []frontierNode{{id: fn, depth: 0}}
	var out []int64

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return ReachableResult{}, ctx.Err()
		default:
		}

		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}

		edges, err := adapter.CallEdges(ctx, cur.id, string(dir))
		if err != nil {
			return ReachableResult{}, err
		}
		for _, e := range edges {
			next := e.CalleeID
			if dir == DirectionIn {
				next = e.CallerID
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, frontierNode{id: next, depth: cur.depth + 1})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return ReachableResult{FunctionIDs: out}, nil
}

// UncalledResult lists functions unreachable from entry at the
// inter-procedural level — dead code when entry is the program's real
// entry point.
type UncalledResult struct {
	FunctionIDs     []int64
	CallGraphAbsent bool
}

// Uncalled returns every function id present in the call graph that is
// not forward-reachable from entry.
func Uncalled(ctx context.Context, adapter store.Adapter, entry int64, allFunctionIDs []int64) (UncalledResult, error) {
	reach, err := Reachable(ctx, adapter, entry, DirectionOut, 0)
	if err != nil {
		return UncalledResult{}, err
	}
	if reach.CallGraphAbsent {
		return UncalledResult{CallGraphAbsent: true}, nil
	}

	reached := map[int64]bool{entry: true}
	for _, id := range reach.FunctionIDs {
		reached[id] = true
	}

	var uncalled []int64
	for _, id := range allFunctionIDs {
		if !reached[id] {
			uncalled = append(uncalled, id)
		}
	}
	sort.Slice(uncalled, func(i, j int) bool { return uncalled[i] < uncalled[j] })
	return UncalledResult{FunctionIDs: uncalled}, nil
}
