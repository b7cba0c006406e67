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

package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	flag "github.com/spf13/pflag"
	"github.com/schollz/progressbar/v3"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/pathengine"
	"github.com/oldnordic/mirage/pkg/store"
)

// HotspotEntry ranks one function by its enumerated path count, and
// optionally by inter-procedural strongly-connected-component size.
type HotspotEntry struct {
	Function   string `json:"function"`
	PathCount  int    `json:"path_count"`
	BoundedHit bool   `json:"bounded_hit"`
	SCCSize    int    `json:"scc_size,omitempty"`
	RiskScore  int    `json:"risk_score,omitempty"`
}

// HotspotsResult is the `hotspots` subcommand's data payload.
type HotspotsResult struct {
	CallGraphAbsent bool           `json:"call_graph_absent,omitempty"`
	Entries         []HotspotEntry `json:"entries"`
}

func runHotspots(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("hotspots", flag.ExitOnError)
	entry := fs.String("entry", "", "Restrict ranking to functions reachable from this entry symbol")
	top := fs.Int("top", 20, "Report at most this many highest-ranked functions")
	minPaths := fs.Int("min-paths", 0, "Omit functions with fewer than this many enumerated paths")
	interProcedural := fs.Bool("inter-procedural", false, "Weight the ranking by call-graph strongly-connected-component size")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage hotspots [--entry S] [--top N] [--min-paths N] [--inter-procedural]

Ranks functions by their enumerated path count, a proxy for structural
complexity and test-surface risk. Uses the path cache where warm,
enumerating (and caching) the rest. With --inter-procedural, weights
each function's path count by the size of its call-graph
strongly-connected component (recursion inflates blast radius).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	adapter := openAdapter(globals)
	defer adapter.Close()
	ctx := context.Background()

	var fns []cfgmodel.Function
	if *entry != "" {
		fn, err := adapter.ResolveFunction(ctx, parseFunctionRef(*entry))
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		if fn == nil {
			errors.FatalError(errors.ErrNotFound(*entry), globals.jsonMode())
		}
		reach, err := callgraph.Reachable(ctx, adapter, fn.ID, callgraph.DirectionOut, 0)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		for _, id := range reach.FunctionIDs {
			if named, err := adapter.ResolveFunction(ctx, store.FunctionRef{ID: id}); err == nil && named != nil {
				fns = append(fns, *named)
			}
		}
	} else {
		all, err := adapter.AllFunctions(ctx)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		fns = all
	}

	var sccSize map[int64]int
	var callGraphAbsent bool
	if *interProcedural {
		allFns, err := adapter.AllFunctions(ctx)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		ids := make([]int64, len(allFns))
		for i, f := range allFns {
			ids[i] = f.ID
		}
		cycles, err := callgraph.Cycles(ctx, adapter, ids)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		callGraphAbsent = cycles.CallGraphAbsent
		sccSize = map[int64]int{}
		for _, c := range cycles.Components {
			for _, id := range c.Members {
				sccSize[id] = len(c.Members)
			}
		}
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet && !globals.jsonMode() {
		bar = progressbar.Default(int64(len(fns)), "ranking functions")
	}

	limits := pathengine.DefaultLimits()
	result := HotspotsResult{CallGraphAbsent: callGraphAbsent}
	for _, fn := range fns {
		cfg, _, err := cfgload.Load(ctx, adapter, store.FunctionRef{ID: fn.ID})
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			continue
		}
		cached, err := pathengine.PathsFor(ctx, adapter, cfg, limits)
		if err != nil {
			continue
		}
		if len(cached.Paths) < *minPaths {
			continue
		}
		e := HotspotEntry{Function: fn.Name, PathCount: len(cached.Paths), BoundedHit: cached.BoundedHit}
		if sccSize != nil {
			size := sccSize[fn.ID]
			if size < 1 {
				size = 1
			}
			e.SCCSize = size
			e.RiskScore = e.PathCount * size
		}
		result.Entries = append(result.Entries, e)
	}

	if sccSize != nil {
		sort.Slice(result.Entries, func(i, j int) bool { return result.Entries[i].RiskScore > result.Entries[j].RiskScore })
	} else {
		sort.Slice(result.Entries, func(i, j int) bool { return result.Entries[i].PathCount > result.Entries[j].PathCount })
	}
	if *top > 0 && len(result.Entries) > *top {
		result.Entries = result.Entries[:*top]
	}

	emit(globals, "hotspots", result, func() {
		ui.Header("Path-Count Hotspots")
		for _, e := range result.Entries {
			bounded := ""
			if e.BoundedHit {
				bounded = ui.DimText(" [bounded]")
			}
			if e.SCCSize > 0 {
				fmt.Printf("  %s  %s  (paths=%d scc=%d)%s\n", ui.CountText(e.RiskScore), e.Function, e.PathCount, e.SCCSize, bounded)
			} else {
				fmt.Printf("  %s  %s%s\n", ui.CountText(e.PathCount), e.Function, bounded)
			}
		}
	})
}
