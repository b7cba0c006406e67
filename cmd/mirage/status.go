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
	"github.com/oldnordic/mirage/pkg/store"
)

// StatusResult is the `status` subcommand's data payload.
type StatusResult struct {
	DBPath        string      `json:"db_path"`
	Backend       string      `json:"backend"`
	SchemaVersion int         `json:"schema_version"`
	Stats         store.Stats `json:"stats"`
}

func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage status [options]

Reports which store backend and path this invocation resolved to, the
store's schema version, and row counts across its tables.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path, backend, err := resolveStoreTarget(globals)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	adapter := openAdapter(globals)
	defer adapter.Close()

	ctx := context.Background()
	version, err := adapter.SchemaVersion(ctx)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	stats, err := adapter.Stats(ctx)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	if backend == "" {
		backend = "auto"
	}
	result := StatusResult{DBPath: path, Backend: backend, SchemaVersion: version, Stats: stats}

	emit(globals, "status", result, func() {
		ui.Header("Mirage Store Status")
		fmt.Printf("%s  %s\n", ui.Label("Path:"), ui.DimText(result.DBPath))
		fmt.Printf("%s  %s\n", ui.Label("Backend:"), result.Backend)
		fmt.Printf("%s  %d\n", ui.Label("Schema Version:"), result.SchemaVersion)
		fmt.Println()
		ui.SubHeader("Contents:")
		fmt.Printf("  Functions:   %s\n", ui.CountText(result.Stats.Functions))
		fmt.Printf("  Blocks:      %s\n", ui.CountText(result.Stats.Blocks))
		fmt.Printf("  Edges:       %s\n", ui.CountText(result.Stats.Edges))
		fmt.Printf("  Cached Paths: %s\n", ui.CountText(result.Stats.Paths))
		fmt.Printf("  Call Edges:  %s\n", ui.CountText(result.Stats.CallEdges))
	})
}
