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

package cfgload

import (
	"encoding/json"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// wireTerminator is the structured JSON shape the store persists a
// terminator as. Only the fields relevant to Tag are populated.
type wireTerminator struct {
	Tag             string                  `json:"tag"`
	GotoTarget      int                     `json:"goto_target,omitempty"`
	SwitchTargets   []wireSwitchTarget      `json:"switch_targets,omitempty"`
	SwitchOtherwise int                     `json:"switch_otherwise,omitempty"`
	CallTarget      *int                    `json:"call_target,omitempty"`
	CallUnwind      *int                    `json:"call_unwind,omitempty"`
	AbortReason     string                  `json:"abort_reason,omitempty"`
}

type wireSwitchTarget struct {
	Discriminant int64 `json:"discriminant"`
	Target       int   `json:"target"`
}

// decodeTerminator parses a terminator from its stored JSON form. An
// unknown or unparseable tag maps to Unreachable with a non-empty
// warning string for the caller to log.
func decodeTerminator(raw string) (cfgmodel.Terminator, string) {
	if raw == "" {
		return cfgmodel.Terminator{Tag: cfgmodel.TermUnreachable}, "empty terminator"
	}

	var w wireTerminator
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return cfgmodel.Terminator{Tag: cfgmodel.TermUnreachable}, "unparseable terminator JSON: " + err.Error()
	}

	switch w.Tag {
	case "Goto":
		return cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: w.GotoTarget}, ""
	case "SwitchInt":
		targets := make([]cfgmodel.SwitchTarget, len(w.SwitchTargets))
		for i, t := range w.SwitchTargets {
			targets[i] = cfgmodel.SwitchTarget{Discriminant: t.Discriminant, Target: t.Target}
		}
		return cfgmodel.Terminator{Tag: cfgmodel.TermSwitchInt, SwitchTargets: targets, SwitchOtherwise: w.SwitchOtherwise}, ""
	case "Return":
		return cfgmodel.Terminator{Tag: cfgmodel.TermReturn}, ""
	case "Call":
		return cfgmodel.Terminator{Tag: cfgmodel.TermCall, CallTarget: w.CallTarget, CallUnwind: w.CallUnwind}, ""
	case "Abort":
		return cfgmodel.Terminator{Tag: cfgmodel.TermAbort, AbortReason: w.AbortReason}, ""
	case "Unreachable":
		return cfgmodel.Terminator{Tag: cfgmodel.TermUnreachable}, ""
	default:
		return cfgmodel.Terminator{Tag: cfgmodel.TermUnreachable}, "unknown terminator tag: " + w.Tag
	}
}
