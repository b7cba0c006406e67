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
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

func convertExplicitEdges(raw []store.RawEdge, idOfBlock map[int64]int) []cfgmodel.Edge {
	edges := make([]cfgmodel.Edge, 0, len(raw))
	for _, re := range raw {
		from, okFrom := idOfBlock[re.FromBlockID]
		to, okTo := idOfBlock[re.ToBlockID]
		if !okFrom || !okTo {
			continue
		}
		edges = append(edges, cfgmodel.Edge{
			From:            from,
			To:              to,
			Kind:            decodeEdgeKind(re.Kind),
			SwitchCaseValue: re.CaseValue,
		})
	}
	return edges
}

func decodeEdgeKind(s string) cfgmodel.EdgeKind {
	switch s {
	case "TrueBranch":
		return cfgmodel.EdgeTrueBranch
	case "FalseBranch":
		return cfgmodel.EdgeFalseBranch
	case "SwitchCase":
		return cfgmodel.EdgeSwitchCase
	case "LoopBack":
		return cfgmodel.EdgeLoopBack
	case "Exception":
		return cfgmodel.EdgeException
	case "Return":
		return cfgmodel.EdgeReturn
	case "Call":
		return cfgmodel.EdgeCall
	default:
		return cfgmodel.EdgeFallthrough
	}
}

// deriveEdges builds edges from each block's terminator, used when the
// store has no explicit edge rows for this function:
//   - Goto            -> one Fallthrough edge
//   - SwitchInt arity2 -> TrueBranch + FalseBranch
//   - SwitchInt arity N -> SwitchCase(k) edges plus an otherwise edge
//   - Call             -> Call edge, plus an Exception edge if unwind is set
//   - Return/Abort/Unreachable -> no outgoing edges
func deriveEdges(blocks []cfgmodel.BasicBlock) []cfgmodel.Edge {
	var edges []cfgmodel.Edge
	for _, b := range blocks {
		switch b.Terminator.Tag {
		case cfgmodel.TermGoto:
			edges = append(edges, cfgmodel.Edge{From: b.LocalIndex, To: b.Terminator.GotoTarget, Kind: cfgmodel.EdgeFallthrough})

		case cfgmodel.TermSwitchInt:
			if len(b.Terminator.SwitchTargets) == 2 {
				edges = append(edges,
					cfgmodel.Edge{From: b.LocalIndex, To: b.Terminator.SwitchTargets[0].Target, Kind: cfgmodel.EdgeTrueBranch},
					cfgmodel.Edge{From: b.LocalIndex, To: b.Terminator.SwitchTargets[1].Target, Kind: cfgmodel.EdgeFalseBranch},
				)
			} else {
				for _, t := range b.Terminator.SwitchTargets {
					edges = append(edges, cfgmodel.Edge{
						From: b.LocalIndex, To: t.Target, Kind: cfgmodel.EdgeSwitchCase, SwitchCaseValue: t.Discriminant,
					})
				}
				edges = append(edges, cfgmodel.Edge{From: b.LocalIndex, To: b.Terminator.SwitchOtherwise, Kind: cfgmodel.EdgeSwitchCase})
			}

		case cfgmodel.TermCall:
			if b.Terminator.CallTarget != nil {
				edges = append(edges, cfgmodel.Edge{From: b.LocalIndex, To: *b.Terminator.CallTarget, Kind: cfgmodel.EdgeCall})
			}
			if b.Terminator.CallUnwind != nil {
				edges = append(edges, cfgmodel.Edge{From: b.LocalIndex, To: *b.Terminator.CallUnwind, Kind: cfgmodel.EdgeException})
			}

		case cfgmodel.TermReturn, cfgmodel.TermAbort, cfgmodel.TermUnreachable:
			// no outgoing edges
		}
	}
	return edges
}
