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
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/oldnordic/mirage/pkg/store"
)

// EnvelopeSchemaVersion is the schema_version every JSON/pretty response
// carries, so downstream tooling can detect a breaking wire-format change.
const EnvelopeSchemaVersion = 1

// Envelope is the {schema_version, execution_id, tool, timestamp, data}
// wrapper every Mirage subcommand's JSON/pretty output uses.
type Envelope struct {
	SchemaVersion int         `json:"schema_version"`
	ExecutionID   string      `json:"execution_id"`
	Tool          string      `json:"tool"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// writeEnvelope renders data as the JSON envelope to stdout, indented when
// Output is "pretty", compact when it is "json".
func writeEnvelope(globals GlobalFlags, tool string, data interface{}) {
	env := Envelope{
		SchemaVersion: EnvelopeSchemaVersion,
		ExecutionID:   uuid.NewString(),
		Tool:          tool,
		Timestamp:     time.Now(),
		Data:          data,
	}
	enc := json.NewEncoder(os.Stdout)
	if globals.Output == "pretty" {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(env)
}

// emit renders data via the JSON envelope in json/pretty mode, or invokes
// humanFn for the default human-readable mode. Every subcommand funnels
// its output through this so the three --output modes stay consistent.
func emit(globals GlobalFlags, tool string, data interface{}, humanFn func()) {
	if globals.jsonMode() {
		writeEnvelope(globals, tool, data)
		return
	}
	humanFn()
}

// parseFunctionRef interprets s as a numeric function id when it parses as
// one, and as a function name otherwise.
func parseFunctionRef(s string) store.FunctionRef {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return store.FunctionRef{ID: id}
	}
	return store.FunctionRef{Name: s}
}
