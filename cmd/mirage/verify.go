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
	"github.com/oldnordic/mirage/pkg/cfgload"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/pathengine"
	"github.com/oldnordic/mirage/pkg/store"
)

// VerifyResultView is the `verify` subcommand's data payload.
type VerifyResultView struct {
	PathID string `json:"path_id"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func runVerify(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	pathID := fs.String("path-id", "", "Hex-encoded path fingerprint to re-check (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mirage verify --path-id ID

Re-checks a cached path fingerprint against the function's current CFG:
every consecutive block pair must still be an edge, the first block
must be entry-reachable, the last must be terminal, and the stored
function hash must still match.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *pathID == "" {
		errors.FatalError(errors.NewUserError("MissingPathID", "--path-id is required", "", "Pass the hex fingerprint shown by `mirage paths`", nil), globals.jsonMode())
	}

	raw, err := hex.DecodeString(*pathID)
	if err != nil || len(raw) != 16 {
		errors.FatalError(errors.NewUserError("BadPathID", "Cannot parse --path-id", "Expected 32 hex characters (128 bits)", "Copy the fingerprint verbatim from `mirage paths`", nil), globals.jsonMode())
	}
	var fingerprint cfgmodel.PathFingerprint
	copy(fingerprint[:], raw)

	adapter := openAdapter(globals)
	defer adapter.Close()

	ctx := context.Background()
	functionID, ok, err := adapter.FindPathOwner(ctx, fingerprint)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}
	if !ok {
		result := VerifyResultView{PathID: *pathID, Valid: false, Reason: "fingerprint not present in any function's cache"}
		emit(globals, "verify", result, func() { printVerify(result) })
		return
	}

	cfg, _, err := cfgload.Load(ctx, adapter, store.FunctionRef{ID: functionID})
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	verdict, err := pathengine.Verify(ctx, adapter, cfg, fingerprint)
	if err != nil {
		errors.FatalError(err, globals.jsonMode())
	}

	result := VerifyResultView{PathID: *pathID, Valid: verdict.Valid, Reason: verdict.Reason}
	emit(globals, "verify", result, func() { printVerify(result) })
}

func printVerify(result VerifyResultView) {
	ui.Header("Path Verification")
	fmt.Printf("%s %s\n", ui.Label("Path ID:"), result.PathID)
	if result.Valid {
		fmt.Println(ui.Label("Valid: yes"))
		return
	}
	fmt.Println(ui.Label("Valid: no"))
	if result.Reason != "" {
		fmt.Printf("%s %s\n", ui.Label("Reason:"), result.Reason)
	}
}
