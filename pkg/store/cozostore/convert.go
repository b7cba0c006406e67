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

package cozostore

import (
	"encoding/hex"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// toInt64 normalizes the numeric types CozoDB's JSON decoding produces
// (float64 for most numbers) back to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func decodeHashHex(s string) cfgmodel.FunctionHash {
	var h cfgmodel.FunctionHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h
	}
	copy(h[:], b)
	return h
}

func decodeHashHexN(s string, n int) []byte {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

func parsePathKind(s string) cfgmodel.PathKind {
	switch s {
	case "Error":
		return cfgmodel.PathError
	case "Degenerate":
		return cfgmodel.PathDegenerate
	case "Unreachable":
		return cfgmodel.PathUnreachable
	default:
		return cfgmodel.PathNormal
	}
}
