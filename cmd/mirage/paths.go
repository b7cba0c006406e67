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
	"github.com/oldnordic/mirage/internal/metrics"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/pathengine"
)

// PathView is one enumerated path, for JSON output.
type PathView struct {
	Fingerprint string `json:"fingerprint"`
	Kind        string `json:"kind"`
	Blocks      []int  `json:"blocks,omitempty"`
}

// PathsResult is the `paths` subcommand's data payload.
type PathsResult struct {
	Function   string     `json:"function"`
	FromCache  bool       `json:"from_cache"`
	BoundedHit bool       `json:"bounded_hit"`
	Paths      []PathView `json:"paths"`
}

func runPaths(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("paths", flag.ExitOnError)
	function := fs.String("function", "", "Function name or numeric id (required)")
	showErrors := fs.Bool("show-errors", false, "Include only Error-classified paths")
	maxLength := fs.Int("max-length", 0, "Override the default maximum path length (0 = default)")
	maxPaths := fs.Int("max-paths", 0, "Override the default maximum path count (0 = default)")
	includeUnreachable := fs.Bool("include-unreachable", false, "Also enumerate from unreachable blocks (diagnostic; bypasses the cache)")
	withBlocks := fs.Bool("with-blocks", false, "Include each path's full block sequence")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage paths --function F [options]

Enumerates bounded entry-to-exit paths through a function, using the
content-addressed path cache when the function's CFG is unchanged.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	adapter, cfg, fn := loadCFG(globals, *function)
	defer adapter.Close()

	limits := pathengine.DefaultLimits()
	if *maxLength > 0 {
		limits.MaxLength = *maxLength
	}
	if *maxPaths > 0 {
		limits.MaxPaths = *maxPaths
	}
	limits.IncludeUnreachable = *includeUnreachable

	reg := metrics.New()
	cached, err := pathengine.PathsFor(context.Background(), adapter, cfg, limits)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	if cached.FromCache {
		reg.CacheHits.Inc()
	} else {
		reg.CacheMisses.Inc()
	}
	reg.PathsEnumerated.Add(float64(len(cached.Paths)))
	writeMetricsFile(globals, reg)

	result := PathsResult{Function: fn.Name, FromCache: cached.FromCache, BoundedHit: cached.BoundedHit}
	for _, p := range cached.Paths {
		if *showErrors && p.Kind != cfgmodel.PathError {
			continue
		}
		view := PathView{Fingerprint: p.Fingerprint.String(), Kind: p.Kind.String()}
		if *withBlocks {
			view.Blocks = p.Blocks
		}
		result.Paths = append(result.Paths, view)
	}

	emit(globals, "paths", result, func() {
		ui.Header(fmt.Sprintf("Paths: %s", fn.Name))
		source := "recomputed"
		if result.FromCache {
			source = "cache"
		}
		fmt.Printf("%s %d (%s)", ui.Label("Count:"), len(result.Paths), source)
		if result.BoundedHit {
			fmt.Print(ui.DimText("  [bounded — limits reached, not exhaustive]"))
		}
		fmt.Println()
		for _, p := range result.Paths {
			if *withBlocks {
				fmt.Printf("  %s  %s  %s\n", p.Fingerprint, p.Kind, intSliceToString(p.Blocks))
			} else {
				fmt.Printf("  %s  %s\n", p.Fingerprint, p.Kind)
			}
		}
	})
}

// writeMetricsFile writes reg to globals.MetricsFile when the flag is set,
// warning (never failing the command) if the write itself fails.
func writeMetricsFile(globals GlobalFlags, reg *metrics.Registry) {
	if globals.MetricsFile == "" {
		return
	}
	if err := reg.WriteFile(globals.MetricsFile); err != nil {
		warnIfQuiet(globals, "warning: could not write metrics file %q: %v", globals.MetricsFile, err)
	}
}
