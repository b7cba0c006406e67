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

// PatternView is one recovered branch/switch construct, for JSON output.
type PatternView struct {
	Kind     string `json:"kind"`
	Block    int    `json:"block"`
	Arms     []int  `json:"arms"`
	Merge    int    `json:"merge,omitempty"`
	HasMerge bool   `json:"has_merge"`
}

// PatternsResult is the `patterns` subcommand's data payload.
type PatternsResult struct {
	Function string         `json:"function"`
	Patterns []PatternView  `json:"patterns"`
}

func runPatterns(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("patterns", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id (required)")
	ifElseOnly := fs.Bool("if-else", false, "Report only if/if-else constructs")
	matchOnly := fs.Bool("match", false, "Report only n-way switch constructs")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage patterns --function F [--if-else] [--match]

Recovers if/if-else and n-way switch constructs from CFG shape alone.
With neither filter flag, reports both kinds.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	adapter, cfg, fn := loadCFG(globals, *function)
	defer adapter.Close()

	pdt := analysis.PostDominators(cfg)
	patterns := analysis.Patterns(cfg, pdt)

	result := PatternsResult{Function: fn.Name}
	for _, p := range patterns {
		if *ifElseOnly && p.Kind == analysis.PatternSwitch {
			continue
		}
		if *matchOnly && p.Kind != analysis.PatternSwitch {
			continue
		}
		result.Patterns = append(result.Patterns, PatternView{Kind: p.Kind.String(), Block: p.Block, Arms: p.Arms, Merge: p.Merge, HasMerge: p.HasMerge})
	}

	emit(globals, "patterns", result, func() {
		ui.Header(fmt.Sprintf("Control Patterns: %s", fn.Name))
		if len(result.Patterns) == 0 {
			fmt.Println(ui.DimText("  (none found)"))
			return
		}
		for _, p := range result.Patterns {
			merge := ui.DimText("(no common merge)")
			if p.HasMerge {
				merge = fmt.Sprintf("merge=%s", blockLabel(cfg, p.Merge))
			}
			fmt.Printf("  %s at %s  arms=%s  %s\n", p.Kind, blockLabel(cfg, p.Block), intSliceToString(p.Arms), merge)
		}
	})
}
