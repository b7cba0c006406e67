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
	"encoding/hex"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/callgraph"
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// BlastZoneResult is the `blast-zone` subcommand's data payload.
type BlastZoneResult struct {
	Function        string  `json:"function"`
	Block           int     `json:"block,omitempty"`
	CallGraphAbsent bool    `json:"call_graph_absent"`
	ImpactedIDs     []int64 `json:"impacted_function_ids,omitempty"`
}

func runBlastZone(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("blast-zone", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id")
	blockID := fs.Int("block-id", -1, "Local block index within --function")
	pathID := fs.String("path-id", "", "Hex path fingerprint; resolves to its owning function")
	maxDepth := fs.Int("max-depth", 0, "Maximum inter-procedural BFS depth (0 = unbounded)")
	useCallGraph := fs.Bool("use-call-graph", true, "Follow the call graph to impacted callers")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage blast-zone --function F --block-id N [options]
       mirage blast-zone --path-id ID [options]

Reports the inter-procedural impact of changing a block: every
function that transitively calls the owning function, via the call
graph's reverse reachability.

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

	var functionID int64
	var functionName string
	var block int

	if *pathID != "" {
		raw, err := hex.DecodeString(*pathID)
		if err != nil || len(raw) != 16 {
			errors.FatalError(errors.NewUserError("BadPathID", "Cannot parse --path-id", "Expected 32 hex characters", "Copy the fingerprint verbatim from `mirage paths`", nil), globals.jsonMode())
		}
		var fp cfgmodel.PathFingerprint
		copy(fp[:], raw)
		id, ok, err := adapter.FindPathOwner(ctx, fp)
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		if !ok {
			errors.FatalError(errors.ErrNotFound(*pathID), globals.jsonMode())
		}
		functionID = id
		block = -1
	} else {
		requireFunctionFlag(*function, globals)
		cfg, fn, err := cfgload.Load(ctx, adapter, parseFunctionRef(*function))
		if err != nil {
			errors.FatalError(err, globals.jsonMode())
		}
		if *blockID >= 0 && *blockID >= cfg.NumBlocks() {
			errors.FatalError(errors.NewUserError("BlockOutOfRange", "Block index out of range", "", "Pass a valid block index for this function", nil), globals.jsonMode())
		}
		functionID = fn.ID
		functionName = fn.Name
		block = *blockID
	}

	if functionName == "" {
		if fn, err := adapter.ResolveFunction(ctx, store.FunctionRef{ID: functionID}); err == nil && fn != nil {
			functionName = fn.Name
		}
	}

	result := BlastZoneResult{Function: functionName, Block: block}
	if !*useCallGraph {
		emit(globals, "blast-zone", result, func() { printBlastZone(result) })
		return
	}

	reach, err := callgraph.Reachable(ctx, adapter, functionID, callgraph.DirectionIn, *maxDepth)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	result.CallGraphAbsent = reach.CallGraphAbsent
	result.ImpactedIDs = reach.FunctionIDs

	emit(globals, "blast-zone", result, func() { printBlastZone(result) })
}

func printBlastZone(result BlastZoneResult) {
	ui.Header(fmt.Sprintf("Blast Zone: %s", result.Function))
	if result.CallGraphAbsent {
		ui.Warning("No call graph data in this store — impact is limited to intra-procedural analysis.")
		return
	}
	fmt.Printf("%s %d callers transitively impacted\n", ui.Label("Impact:"), len(result.ImpactedIDs))
	for _, id := range result.ImpactedIDs {
		fmt.Printf("  function #%d\n", id)
	}
}
