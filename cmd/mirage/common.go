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
	"strings"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/sigparse"
	"github.com/oldnordic/mirage/pkg/store"
)

// requireFunctionFlag exits with a User error when a command that needs
// --function was invoked without one.
func requireFunctionFlag(function string, globals GlobalFlags) {
	if function == "" {
		errors.FatalError(errors.NewUserError("MissingFunction",
			"--function is required",
			"", "Pass --function <name-or-id>", nil), globals.jsonMode())
	}
}

// loadCFG opens the store, resolves function, and loads its CFG, exiting
// the process on any failure. Callers own closing the returned adapter.
func loadCFG(globals GlobalFlags, function string) (store.Adapter, *cfgmodel.CFG, *cfgmodel.Function) {
	requireFunctionFlag(function, globals)
	adapter := openAdapter(globals)

	cfg, fn, err := cfgload.Load(context.Background(), adapter, parseFunctionRef(function))
	if err != nil {
		_ = adapter.Close()
		errors.FatalError(err, globals.jsonMode())
	}
	return adapter, cfg, fn
}

// blockLabel renders a block for human output: its local index, kind (when
// not Normal), and source range (when the indexer supplied one).
func blockLabel(cfg *cfgmodel.CFG, i int) string {
	b := cfg.Blocks[i]
	label := fmt.Sprintf("b%d", i)
	if b.Kind != cfgmodel.BlockNormal {
		label += fmt.Sprintf(" (%s)", b.Kind)
	}
	if b.Source != nil {
		label += fmt.Sprintf(" [%s:%d]", b.Source.FilePath, b.Source.StartLine)
	}
	return label
}

// formatSignature renders a short, normalized parameter summary when name
// looks like a full Go signature string (the indexer is free to store
// either a bare symbol name or a full "func (...) Name(params) results"
// string); otherwise it returns the empty string, so callers can append
// its result to the name unconditionally.
func formatSignature(name string) string {
	params := sigparse.ParseGoParams(name)
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", p.Name, p.Type)
	}
	return fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
}

func intSliceToString(s []int) string {
	out := ""
	for i, v := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d", v)
	}
	return out
}

func warnIfQuiet(globals GlobalFlags, format string, args ...interface{}) {
	if !globals.Quiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
