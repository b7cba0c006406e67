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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/analysis"
)

// LoopView is one recovered natural loop, for JSON output.
type LoopView struct {
	Header       int   `json:"header"`
	BackEdges    []int `json:"back_edges"`
	Body         []int `json:"body"`
	NestingLevel int   `json:"nesting_level"`
}

// LoopsResult is the `loops` subcommand's data payload.
type LoopsResult struct {
	Function string     `json:"function"`
	Loops    []LoopView `json:"loops"`
}

func runLoops(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("loops", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id (required)")
	verbose := fs.Bool("verbose", false, "Also print each loop's full body and back-edge sources")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage loops --function F [--verbose]

Recovers natural loops from back edges found with the dominator tree
(an edge u->h where h dominates u), nesting level included.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	adapter, cfg, fn := loadCFG(globals, *function)
	defer adapter.Close()

	dt := analysis.Dominators(cfg)
	loops := analysis.NaturalLoops(cfg, dt)

	result := LoopsResult{Function: fn.Name}
	for _, l := range loops {
		result.Loops = append(result.Loops, LoopView{Header: l.Header, BackEdges: l.BackEdges, Body: l.Body, NestingLevel: l.NestingLevel})
	}

	emit(globals, "loops", result, func() {
		ui.Header(fmt.Sprintf("Natural Loops: %s", fn.Name))
		if len(result.Loops) == 0 {
			fmt.Println(ui.DimText("  (no loops found)"))
			return
		}
		for _, l := range result.Loops {
			fmt.Printf("  %s header=%s nesting=%d\n", ui.Label("Loop"), blockLabel(cfg, l.Header), l.NestingLevel)
			if *verbose {
				fmt.Printf("    body: %s\n", intSliceToString(l.Body))
				fmt.Printf("    back edges from: %s\n", intSliceToString(l.BackEdges))
			}
		}
	})
}
