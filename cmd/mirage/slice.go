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
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/store"
)

// SliceResult is the `slice` subcommand's data payload.
type SliceResult struct {
	Symbol          string  `json:"symbol"`
	Direction       string  `json:"direction"`
	CallGraphAbsent bool    `json:"call_graph_absent"`
	FunctionIDs     []int64 `json:"function_ids,omitempty"`
}

func runSlice(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Function name or numeric id (required)")
	direction := fs.String("direction", "forward", "Slice direction: forward (callees, transitively) or backward (callers, transitively)")
	verbose := fs.Bool("verbose", false, "Also resolve and print each reached function's name (default when human output is active)")
	maxDepth := fs.Int("max-depth", 0, "Maximum BFS depth (0 = unbounded)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage slice --symbol S --direction forward|backward [--max-depth N] [--verbose]

Computes a call-graph reachability slice from a symbol: every function
it transitively calls (--direction forward, what this affects) or
every function that transitively calls it (--direction backward, what
affects this).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *symbol == "" {
		errors.FatalError(errors.NewUserError("MissingSymbol", "--symbol is required", "", "Pass --symbol <name-or-id>", nil), globals.jsonMode())
	}
	var dir callgraph.Direction
	switch *direction {
	case "forward", "out":
		dir = callgraph.DirectionOut
	case "backward", "in":
		dir = callgraph.DirectionIn
	default:
		errors.FatalError(errors.NewUserError("BadDirection", "--direction must be forward or backward", *direction, "Pass --direction forward or --direction backward", nil), globals.jsonMode())
	}

	adapter := openAdapter(globals)
	defer adapter.Close()
	ctx := context.Background()

	fn, err := adapter.ResolveFunction(ctx, parseFunctionRef(*symbol))
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	if fn == nil {
		errors.FatalError(errors.ErrNotFound(*symbol), globals.jsonMode())
	}

	reach, err := callgraph.Reachable(ctx, adapter, fn.ID, dir, *maxDepth)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	result := SliceResult{Symbol: fn.Name, Direction: *direction, CallGraphAbsent: reach.CallGraphAbsent, FunctionIDs: reach.FunctionIDs}

	emit(globals, "slice", result, func() {
		ui.Header(fmt.Sprintf("Slice: %s (%s)", result.Symbol, result.Direction))
		if result.CallGraphAbsent {
			ui.Warning("No call graph data in this store.")
			return
		}
		fmt.Printf("%s %d functions\n", ui.Label("Reachable:"), len(result.FunctionIDs))
		for _, id := range result.FunctionIDs {
			if !*verbose {
				fmt.Printf("  #%d\n", id)
				continue
			}
			name := fmt.Sprintf("#%d", id)
			if named, err := adapter.ResolveFunction(ctx, store.FunctionRef{ID: id}); err == nil && named != nil {
				name = named.Name
			}
			fmt.Printf("  %s%s\n", name, ui.DimText(formatSignature(name)))
		}
	})
}
