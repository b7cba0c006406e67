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

package pathengine

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// Fingerprint computes p's 128-bit content-addressed fingerprint: a
// SHA-256 digest of p's canonical encoding (function_id ∥ len ∥
// block_0 ∥ ... ∥ block_{len-1}), truncated to its first 16 bytes.
// Truncating a cryptographic digest rather than using a narrower hash
// keeps full-width collision resistance for the 128 bits that are kept.
func Fingerprint(p *cfgmodel.Path) cfgmodel.PathFingerprint {
	sum := sha256.Sum256(p.CanonicalEncoding())
	var fp cfgmodel.PathFingerprint
	copy(fp[:], sum[:16])
	return fp
}

// FunctionHash computes a content hash over cfg's shape: every block's
// kind and terminator tag/payload in local-index order, followed by the
// edge multiset (from, to, kind, case value) sorted into canonical
// order so that the hash doesn't depend on the order edges happened to
// be loaded in. Stable across insignificant rewrites (renumbering that
// preserves block order does not change the hash; any edge or
// terminator change does).
func FunctionHash(cfg *cfgmodel.CFG) cfgmodel.FunctionHash {
	h := sha256.New()

	var fidBuf [8]byte
	binary.BigEndian.PutUint64(fidBuf[:], uint64(cfg.FunctionID))
	h.Write(fidBuf[:])

	for _, b := range cfg.Blocks {
		writeUint64(h, uint64(b.LocalIndex))
		writeUint64(h, uint64(b.Kind))
		writeUint64(h, uint64(b.Terminator.Tag))
		writeUint64(h, uint64(b.Terminator.GotoTarget))
		writeUint64(h, uint64(len(b.Terminator.SwitchTargets)))
		for _, t := range b.Terminator.SwitchTargets {
			writeInt64(h, t.Discriminant)
			writeUint64(h, uint64(t.Target))
		}
		writeUint64(h, uint64(b.Terminator.SwitchOtherwise))
	}

	type edgeKey struct {
		from, to int
		kind     cfgmodel.EdgeKind
		caseVal  int64
	}
	keys := make([]edgeKey, len(cfg.Edges))
	for i, e := range cfg.Edges {
		keys[i] = edgeKey{from: e.From, to: e.To, kind: e.Kind, caseVal: e.SwitchCaseValue}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].caseVal < keys[j].caseVal
	})
	for _, k := range keys {
		writeUint64(h, uint64(k.from))
		writeUint64(h, uint64(k.to))
		writeUint64(h, uint64(k.kind))
		writeInt64(h, k.caseVal)
	}

	var out cfgmodel.FunctionHash
	copy(out[:], h.Sum(nil))
	return out
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	writeUint64(h, uint64(v))
}
