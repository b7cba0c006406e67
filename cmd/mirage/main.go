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

// Package main implements the Mirage CLI: a single-shot code intelligence
// tool that reads a function's control-flow graph from a shared graph
// store and answers structural questions about it (dominance, loops,
// paths, reachability, call-graph reach).
//
// Usage:
//
//	mirage status                               Database statistics
//	mirage paths --function F                   Enumerate entry-to-exit paths
//	mirage cfg --function F                      Render a function's CFG
//	mirage dominators --function F               Dominator/post-dominator tree
//	mirage loops --function F                    Natural loop recovery
//	mirage unreachable                           Unreachable-block report
//	mirage patterns --function F                 if/else and switch recovery
//	mirage frontiers --function F                Dominance frontiers
//	mirage verify --path-id ID                   Re-check a cached path
//	mirage blast-zone --function F --block-id N  Inter-procedural impact
//	mirage cycles                                Call-graph / loop cycles
//	mirage slice --symbol S --direction D        Call-graph reachability slice
//	mirage hotspots                              Path-count risk ranking
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/internal/ui"
	"github.com/oldnordic/mirage/pkg/store"
	"github.com/oldnordic/mirage/pkg/store/cozostore"
	"github.com/oldnordic/mirage/pkg/store/sqlstore"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags every subcommand inherits.
type GlobalFlags struct {
	DBPath      string
	Backend     string
	Output      string // human, json, pretty
	NoColor     bool
	Verbose     int
	Quiet       bool
	MetricsFile string
}

func (g GlobalFlags) jsonMode() bool { return g.Output == "json" || g.Output == "pretty" }

func logInfo(g GlobalFlags, format string, args ...interface{}) {
	if !g.Quiet && g.Verbose >= 1 {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

func logDebug(g GlobalFlags, format string, args ...interface{}) {
	if g.Verbose >= 2 {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

func main() {
	cozostore.Register()
	sqlstore.Register()

	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		dbPath      = flag.String("db", "", "Path to the shared graph store (default: $MIRAGE_DB_PATH, then project config, then ~/.mirage/data/<project>)")
		backend     = flag.String("backend", "", "Force store backend: cozo or sql (default: auto-detect)")
		output      = flag.String("output", "human", "Output format: human, json, pretty")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v info, -vv debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
		metricsFile = flag.String("metrics-file", "", "Write Prometheus textfile-collector metrics for this run to the given path")
	)

	flag.SetInterspersed(false)
	flag.Usage = printUsage

	flag.Parse()

	if *showVersion {
		fmt.Printf("mirage version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *output != "human" && *output != "json" && *output != "pretty" {
		fmt.Fprintf(os.Stderr, "Error: --output must be human, json, or pretty\n")
		os.Exit(1)
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}
	if *output == "json" || *output == "pretty" {
		*quiet = true
	}

	globals := GlobalFlags{
		DBPath:      *dbPath,
		Backend:     *backend,
		Output:      *output,
		NoColor:     *noColor,
		Verbose:     *verbose,
		Quiet:       *quiet,
		MetricsFile: *metricsFile,
	}

	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "status":
		runStatus(cmdArgs, globals)
	case "paths":
		runPaths(cmdArgs, globals)
	case "cfg":
		runCFG(cmdArgs, globals)
	case "dominators":
		runDominators(cmdArgs, globals)
	case "loops":
		runLoops(cmdArgs, globals)
	case "unreachable":
		runUnreachable(cmdArgs, globals)
	case "patterns":
		runPatterns(cmdArgs, globals)
	case "frontiers":
		runFrontiers(cmdArgs, globals)
	case "verify":
		runVerify(cmdArgs, globals)
	case "blast-zone":
		runBlastZone(cmdArgs, globals)
	case "cycles":
		runCycles(cmdArgs, globals)
	case "slice":
		runSlice(cmdArgs, globals)
	case "hotspots":
		runHotspots(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Mirage - Intra-procedural Code Intelligence Engine

Mirage reads per-function control-flow graphs from a shared graph store
and answers structural questions: which paths exist through a function,
which code is unreachable, which loops and branches are present, and how
a change propagates through the call graph.

Usage:
  mirage <command> [options]

Commands:
  status        Database statistics
  paths         Enumerate entry-to-exit paths through a function
  cfg           Render a function's control-flow graph
  dominators    Dominator / post-dominator tree
  loops         Natural loop recovery
  unreachable   Unreachable-block report
  patterns      if/else and switch pattern recovery
  frontiers     Dominance frontiers
  verify        Re-check a cached path against the live CFG
  blast-zone    Inter-procedural impact of a change
  cycles        Call-graph and loop cycle report
  slice         Call-graph reachability slice
  hotspots      Path-count risk ranking

Global Options:
  --db <path>        Path to the shared graph store
  --backend <name>    Force backend: cozo or sql
  --output <mode>     Output format: human, json, pretty
  --no-color          Disable color output (respects NO_COLOR)
  -v, --verbose       Increase verbosity (-v info, -vv debug)
  -q, --quiet         Suppress non-essential output
  --metrics-file <p>  Write Prometheus textfile metrics for this run
  -V, --version       Show version and exit

Environment Variables:
  MIRAGE_DB_PATH   Default store path
  MIRAGE_BACKEND   Default backend (cozo|sql)

For detailed command help: mirage <command> --help

`)
}

// openAdapter resolves and opens the store for this invocation, exiting
// the process on failure via errors.FatalError.
func openAdapter(globals GlobalFlags) store.Adapter {
	path, backend, err := resolveStoreTarget(globals)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	logDebug(globals, "opening store at %s (backend=%s)", path, backend)

	adapter, err := store.Open(path, backend)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	return adapter
}
