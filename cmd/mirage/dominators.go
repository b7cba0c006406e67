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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/metrics"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/analysis"
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// SupernodeDominator pairs a call-graph SCC (supernode) with its
// immediate dominator supernode, for --inter-procedural.
type SupernodeDominator struct {
	Component     int     `json:"component"`
	Members       []int64 `json:"members"`
	IdomComponent int     `json:"idom_component"`
	HasIdom       bool    `json:"has_idom"`
}

// DominatorEntry pairs a block with its immediate (post-)dominator.
type DominatorEntry struct {
	Block    int  `json:"block"`
	Idom     int  `json:"idom"`
	HasIdom  bool `json:"has_idom"`
}

// DominatorsResult is the `dominators` subcommand's data payload.
type DominatorsResult struct {
	Function        string               `json:"function"`
	Post            bool                 `json:"post"`
	Entries         []DominatorEntry     `json:"entries,omitempty"`
	MustPassThrough *MustPassResult      `json:"must_pass_through,omitempty"`
	CallGraphAbsent bool                 `json:"call_graph_absent,omitempty"`
	Supernodes      []SupernodeDominator `json:"supernodes,omitempty"`
}

// MustPassResult answers --must-pass-through: does every path from entry
// to exit (or post-dominance root) pass through the named block.
type MustPassResult struct {
	Block    int  `json:"block"`
	Required bool `json:"required"`
}

func runDominators(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("dominators", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id (required)")
	post := fs.Bool("post", false, "Compute post-dominators instead of dominators")
	mustPass := fs.Int("must-pass-through", -1, "Report whether every exit-bound path passes through this block")
	interProcedural := fs.Bool("inter-procedural", false, "Report call-graph supernode (SCC) dominance rooted at --function's component instead of block dominance")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage dominators --function F [--post] [--must-pass-through N] [--inter-procedural]

Computes the dominator tree (or, with --post, the post-dominator tree)
of a function's CFG. With --inter-procedural, instead collapses the
call graph into strongly-connected-component supernodes and reports
dominance over the resulting condensation DAG, rooted at --function's
own component.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *interProcedural {
		runInterProceduralDominators(globals, *function)
		return
	}

	adapter, cfg, fn := loadCFG(globals, *function)
	defer adapter.Close()

	result := DominatorsResult{Function: fn.Name, Post: *post}

	reg := metrics.New()
	start := time.Now()
	defer func() {
		reg.DominatorSeconds.Observe(time.Since(start).Seconds())
		writeMetricsFile(globals, reg)
	}()

	if *post {
		pdt := analysis.PostDominators(cfg)
		for i := range cfg.Blocks {
			result.Entries = append(result.Entries, DominatorEntry{Block: i, Idom: pdt.Ipdom[i], HasIdom: pdt.Ipdom[i] != cfgmodel.NoDominator})
		}
		if *mustPass >= 0 {
			if *mustPass >= len(cfg.Blocks) {
				errors.FatalError(errors.NewUserError("BlockOutOfRange", "Block index out of range", "", "Pass a valid block index for this function", nil), globals.jsonMode())
			}
			required := pdt.IsPostDominatedBy(cfg.EntryIndex, *mustPass)
			result.MustPassThrough = &MustPassResult{Block: *mustPass, Required: required}
		}
	} else {
		dt := analysis.Dominators(cfg)
		for i := range cfg.Blocks {
			result.Entries = append(result.Entries, DominatorEntry{Block: i, Idom: dt.Idom[i], HasIdom: dt.Idom[i] != cfgmodel.NoDominator})
		}
		if *mustPass >= 0 {
			if *mustPass >= len(cfg.Blocks) {
				errors.FatalError(errors.NewUserError("BlockOutOfRange", "Block index out of range", "", "Pass a valid block index for this function", nil), globals.jsonMode())
			}
			required := true
			for _, exit := range cfg.ExitIndices {
				if !dt.IsDominatedBy(exit, *mustPass) {
					required = false
					break
				}
			}
			result.MustPassThrough = &MustPassResult{Block: *mustPass, Required: required}
		}
	}

	emit(globals, "dominators", result, func() {
		title := "Dominator Tree"
		if *post {
			title = "Post-Dominator Tree"
		}
		ui.Header(fmt.Sprintf("%s: %s", title, fn.Name))
		for _, e := range result.Entries {
			if !e.HasIdom {
				fmt.Printf("  %s  %s\n", blockLabel(cfg, e.Block), ui.DimText("(root)"))
				continue
			}
			fmt.Printf("  %s  <- %s\n", blockLabel(cfg, e.Block), blockLabel(cfg, e.Idom))
		}
		if result.MustPassThrough != nil {
			fmt.Println()
			verdict := "is NOT required"
			if result.MustPassThrough.Required {
				verdict = "IS required"
			}
			fmt.Printf("Block %d %s on every path\n", result.MustPassThrough.Block, verdict)
		}
	})
}

// runInterProceduralDominators collapses the call graph into
// strongly-connected-component supernodes and reports dominance over
// the resulting condensation DAG, rooted at the component containing
// functionRef.
func runInterProceduralDominators(globals GlobalFlags, functionRef string) {
	requireFunctionFlag(functionRef, globals)

	adapter := openAdapter(globals)
	defer adapter.Close()
	ctx := context.Background()

	fn, err := adapter.ResolveFunction(ctx, parseFunctionRef(functionRef))
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	if fn == nil {
		errors.FatalError(errors.ErrNotFound(functionRef), globals.jsonMode())
	}

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
	result := DominatorsResult{Function: fn.Name, CallGraphAbsent: cycles.CallGraphAbsent}
	if cycles.CallGraphAbsent {
		emit(globals, "dominators", result, func() {
			ui.Header(fmt.Sprintf("Inter-procedural Dominators: %s", fn.Name))
			ui.Warning("No call graph data in this store.")
		})
		return
	}

	owner := map[int64]int{}
	for i, c := range cycles.Components {
		for _, m := range c.Members {
			owner[m] = i
		}
	}
	root, ok := owner[fn.ID]
	if !ok {
		errors.FatalError(errors.ErrNotFound(functionRef), globals.jsonMode())
	}

	edges, err := callgraph.Condensation(ctx, adapter, cycles.Components)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	n := len(cycles.Components)
	succ := make([][]int, n)
	pred := make([][]int, n)
	for _, e := range edges {
		succ[e.FromComponent] = append(succ[e.FromComponent], e.ToComponent)
		pred[e.ToComponent] = append(pred[e.ToComponent], e.FromComponent)
	}

	idom := analysis.DominatorsOverGraph(n, root, func(i int) []int { return succ[i] }, func(i int) []int { return pred[i] })
	for i, c := range cycles.Components {
		result.Supernodes = append(result.Supernodes, SupernodeDominator{
			Component:     i,
			Members:       c.Members,
			IdomComponent: idom[i],
			HasIdom:       idom[i] != cfgmodel.NoDominator,
		})
	}

	emit(globals, "dominators", result, func() {
		ui.Header(fmt.Sprintf("Inter-procedural Dominators: %s", fn.Name))
		for _, s := range result.Supernodes {
			if !s.HasIdom {
				fmt.Printf("  component %d %v  %s\n", s.Component, s.Members, ui.DimText("(root)"))
				continue
			}
			fmt.Printf("  component %d %v  <- component %d\n", s.Component, s.Members, s.IdomComponent)
		}
	})
}
