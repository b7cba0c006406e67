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

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/analysis"
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/store"
)

// SCCView is one strongly-connected component, for JSON output.
type SCCView struct {
	Members         []int64 `json:"members"`
	DirectRecursion bool    `json:"direct_recursion"`
}

// FunctionLoopView reports one function's natural loops, for
// --function-loops / --both.
type FunctionLoopView struct {
	Function string     `json:"function"`
	Loops    []LoopView `json:"loops"`
}

// CyclesResultView is the `cycles` subcommand's data payload.
type CyclesResultView struct {
	CallGraphAbsent bool               `json:"call_graph_absent,omitempty"`
	Components      []SCCView          `json:"components,omitempty"`
	FunctionLoops   []FunctionLoopView `json:"function_loops,omitempty"`
}

func runCycles(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("cycles", flag.ExitOnError)
	onlyCycles := fs.Bool("only-cycles", true, "Omit singleton, non-recursive call-graph components from the report")
	callGraph := fs.Bool("call-graph", false, "Report call-graph cycles (default when no mode flag is given)")
	functionLoops := fs.Bool("function-loops", false, "Report each function's intra-procedural natural loops (back edges)")
	both := fs.Bool("both", false, "Report both call-graph cycles and per-function natural loops")
	verbose := fs.Bool("verbose", false, "Also print each natural loop's full body and back-edge sources")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage cycles [--call-graph] [--function-loops] [--both] [--verbose]

Reports call-graph cycles (strongly-connected components with more
than one member, or a self-edge) and/or each indexed function's
intra-procedural natural loops. With no mode flag, reports call-graph
cycles only.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	wantCallGraph := *callGraph || *both || (!*functionLoops && !*both)
	wantFunctionLoops := *functionLoops || *both

	adapter := openAdapter(globals)
	defer adapter.Close()
	ctx := context.Background()

	fns, err := adapter.AllFunctions(ctx)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	ids := make([]int64, len(fns))
	for i, fn := range fns {
		ids[i] = fn.ID
	}

	var result CyclesResultView

	if wantCallGraph {
		cycles, err := callgraph.Cycles(ctx, adapter, ids)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		result.CallGraphAbsent = cycles.CallGraphAbsent
		for _, c := range cycles.Components {
			if *onlyCycles && len(c.Members) == 1 && !c.DirectRecursion {
				continue
			}
			result.Components = append(result.Components, SCCView{Members: c.Members, DirectRecursion: c.DirectRecursion})
		}
	}

	if wantFunctionLoops {
		for _, fn := range fns {
			cfg, _, err := cfgload.Load(ctx, adapter, store.FunctionRef{ID: fn.ID})
			if err != nil {
				continue
			}
			dt := analysis.Dominators(cfg)
			loops := analysis.NaturalLoops(cfg, dt)
			if len(loops) == 0 {
				continue
			}
			view := FunctionLoopView{Function: fn.Name}
			for _, l := range loops {
				view.Loops = append(view.Loops, LoopView{Header: l.Header, BackEdges: l.BackEdges, Body: l.Body, NestingLevel: l.NestingLevel})
			}
			result.FunctionLoops = append(result.FunctionLoops, view)
		}
	}

	emit(globals, "cycles", result, func() {
		ui.Header("Cycles")
		if wantCallGraph {
			fmt.Println(ui.Label("Call-graph cycles:"))
			if result.CallGraphAbsent {
				ui.Warning("  No call graph data in this store.")
			} else if len(result.Components) == 0 {
				fmt.Println(ui.DimText("  (no cycles found)"))
			} else {
				for _, c := range result.Components {
					kind := "mutual recursion"
					if len(c.Members) == 1 {
						kind = "direct recursion"
					}
					fmt.Printf("  %s (%s): %v\n", ui.Label(kind), fmt.Sprintf("%d member(s)", len(c.Members)), c.Members)
				}
			}
		}
		if wantFunctionLoops {
			if wantCallGraph {
				fmt.Println()
			}
			fmt.Println(ui.Label("Function-level natural loops:"))
			if len(result.FunctionLoops) == 0 {
				fmt.Println(ui.DimText("  (none found)"))
			}
			for _, f := range result.FunctionLoops {
				for _, l := range f.Loops {
					fmt.Printf("  %s: header=b%d nesting=%d\n", f.Function, l.Header, l.NestingLevel)
					if *verbose {
						fmt.Printf("    body: %s\n", intSliceToString(l.Body))
						fmt.Printf("    back edges from: %s\n", intSliceToString(l.BackEdges))
					}
				}
			}
		}
	})
}
