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
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/analysis"
)

// FrontierEntry pairs a block with its dominance frontier set.
type FrontierEntry struct {
	Block    int   `json:"block"`
	Frontier []int `json:"frontier"`
}

// FrontiersResult is the `frontiers` subcommand's data payload.
type FrontiersResult struct {
	Function string          `json:"function"`
	Entries  []FrontierEntry `json:"entries"`
	Iterated []int           `json:"iterated,omitempty"`
}

func runFrontiers(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("frontiers", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id (required)")
	node := fs.Int("node", -1, "Restrict the report to this block's own dominance frontier")
	iterated := fs.Bool("iterated", false, "Also compute the iterated closure DF+; seeded by --node, or every block if --node is omitted")
	seed := fs.String("seed", "", "Comma-separated block indices to compute the iterated dominance frontier of (overrides --node/--iterated)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage frontiers --function F [--node ID] [--iterated] [--seed B1,B2,...]

Computes dominance frontiers for every block, or just --node; with
--iterated or --seed, also computes the iterated closure DF+(seed).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	adapter, cfg, fn := loadCFG(globals, *function)
	defer adapter.Close()

	if *node >= 0 && *node >= cfg.NumBlocks() {
		errors.FatalError(errors.NewUserError("BlockOutOfRange", "Block index out of range", "", "Pass a valid block index for this function", nil), globals.jsonMode())
	}

	dt := analysis.Dominators(cfg)
	df := analysis.DominanceFrontiers(cfg, dt)

	result := FrontiersResult{Function: fn.Name}
	for i := range cfg.Blocks {
		if *node >= 0 && i != *node {
			continue
		}
		result.Entries = append(result.Entries, FrontierEntry{Block: i, Frontier: df.Frontier[i]})
	}

	switch {
	case *seed != "":
		seeds, err := parseIntList(*seed)
		if err != nil {
			errors.FatalError(errors.NewUserError("BadSeed", "Cannot parse --seed", err.Error(), "Pass comma-separated integers, e.g. --seed 0,3", nil), globals.jsonMode())
		}
		result.Iterated = analysis.IteratedFrontier(df, seeds)
	case *iterated && *node >= 0:
		result.Iterated = analysis.IteratedFrontier(df, []int{*node})
	case *iterated:
		all := make([]int, cfg.NumBlocks())
		for i := range all {
			all[i] = i
		}
		result.Iterated = analysis.IteratedFrontier(df, all)
	}

	emit(globals, "frontiers", result, func() {
		ui.Header(fmt.Sprintf("Dominance Frontiers: %s", fn.Name))
		for _, e := range result.Entries {
			if len(e.Frontier) == 0 {
				continue
			}
			fmt.Printf("  %s -> %s\n", blockLabel(cfg, e.Block), intSliceToString(e.Frontier))
		}
		if result.Iterated != nil {
			fmt.Println()
			fmt.Printf("%s %s\n", ui.Label("Iterated DF+:"), intSliceToString(result.Iterated))
		}
	})
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
