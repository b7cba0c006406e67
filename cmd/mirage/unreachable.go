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
	"github.com/schollz/progressbar/v3"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/analysis"
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// FunctionUnreachable carries one function's unreachable-block report.
type FunctionUnreachable struct {
	Function string         `json:"function"`
	Blocks   []int          `json:"blocks"`
	Branches []BranchDetail `json:"branches,omitempty"`
}

// BranchDetail shows the outgoing edges an unreachable block still
// carries, for --show-branches.
type BranchDetail struct {
	Block      int   `json:"block"`
	Successors []int `json:"successors"`
}

// UnreachableResult is the `unreachable` subcommand's data payload.
type UnreachableResult struct {
	Functions         []FunctionUnreachable `json:"functions"`
	UncalledFunctions []int64               `json:"uncalled_functions,omitempty"`
	CallGraphAbsent   bool                  `json:"call_graph_absent,omitempty"`
}

func runUnreachable(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("unreachable", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id; also the inter-procedural entry for --include-uncalled")
	withinFunctions := fs.Bool("within-functions", false, "Scan every indexed function instead of a single one")
	showBranches := fs.Bool("show-branches", false, "Also list each unreachable block's outgoing edges")
	includeUncalled := fs.Bool("include-uncalled", false, "Also report functions unreachable from --function in the call graph")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage unreachable --function F [--show-branches] [--include-uncalled]
       mirage unreachable --within-functions [--show-branches]

Reports basic blocks unreachable from a function's entry block. With
--include-uncalled, also reports functions the call graph never
reaches from --function (inter-procedural dead code).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*withinFunctions {
		adapter, cfg, fn := loadCFG(globals, *function)
		defer adapter.Close()

		unreach := analysis.Unreachable(cfg)
		entry := FunctionUnreachable{Function: fn.Name, Blocks: unreach}
		if *showBranches {
			entry.Branches = branchDetails(cfg, unreach)
		}
		result := UnreachableResult{Functions: []FunctionUnreachable{entry}}

		if *includeUncalled {
			ctx := context.Background()
			fns, err := adapter.AllFunctions(ctx)
			if err != nil {
				errors.FatalError(err, globals.jsonMode())
			}
			ids := make([]int64, len(fns))
			for i, f := range fns {
				ids[i] = f.ID
			}
			uncalled, err := callgraph.Uncalled(ctx, adapter, fn.ID, ids)
			if err != nil {
				errors.FatalError(err, globals.jsonMode())
			}
			result.CallGraphAbsent = uncalled.CallGraphAbsent
			result.UncalledFunctions = uncalled.FunctionIDs
		}

		printUnreachable(globals, result)
		return
	}

	adapter := openAdapter(globals)
	defer adapter.Close()

	ctx := context.Background()
	fns, err := adapter.AllFunctions(ctx)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet && !globals.jsonMode() {
		bar = progressbar.Default(int64(len(fns)), "scanning functions")
	}

	var result UnreachableResult
	for _, fn := range fns {
		cfg, _, err := cfgload.Load(ctx, adapter, store.FunctionRef{ID: fn.ID})
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			continue
		}
		if unreach := analysis.Unreachable(cfg); len(unreach) > 0 {
			entry := FunctionUnreachable{Function: fn.Name, Blocks: unreach}
			if *showBranches {
				entry.Branches = branchDetails(cfg, unreach)
			}
			result.Functions = append(result.Functions, entry)
		}
	}

	emit(globals, "unreachable", result, func() {
		ui.Header("Unreachable Blocks")
		if len(result.Functions) == 0 {
			fmt.Println(ui.DimText("  (none found)"))
			return
		}
		for _, f := range result.Functions {
			fmt.Printf("  %s: %s\n", ui.Label(f.Function), intSliceToString(f.Blocks))
			for _, b := range f.Branches {
				fmt.Printf("    b%d -> %s\n", b.Block, intSliceToString(b.Successors))
			}
		}
	})
}

func branchDetails(cfg *cfgmodel.CFG, blocks []int) []BranchDetail {
	out := make([]BranchDetail, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BranchDetail{Block: b, Successors: cfg.Successors(b)})
	}
	return out
}

func printUnreachable(globals GlobalFlags, result UnreachableResult) {
	emit(globals, "unreachable", result, func() {
		ui.Header(fmt.Sprintf("Unreachable Blocks: %s", result.Functions[0].Function))
		if len(result.Functions[0].Blocks) == 0 {
			fmt.Println(ui.DimText("  (none found — every block is entry-reachable)"))
		} else {
			for _, b := range result.Functions[0].Blocks {
				fmt.Printf("  b%d\n", b)
			}
			for _, b := range result.Functions[0].Branches {
				fmt.Printf("    b%d -> %s\n", b.Block, intSliceToString(b.Successors))
			}
		}
		if result.CallGraphAbsent {
			fmt.Println()
			ui.Warning("No call graph data in this store — --include-uncalled skipped.")
			return
		}
		if len(result.UncalledFunctions) > 0 {
			fmt.Println()
			fmt.Printf("%s %d functions never reached from this entry:\n", ui.Label("Uncalled:"), len(result.UncalledFunctions))
			for _, id := range result.UncalledFunctions {
				fmt.Printf("  function #%d\n", id)
			}
		}
	})
}
