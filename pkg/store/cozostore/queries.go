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
	"context"
	"encoding/json"
	"fmt"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

func (b *Backend) ResolveFunction(ctx context.Context, ref store.FunctionRef) (*cfgmodel.Function, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var query string
	var params map[string]any
	if ref.Name != "" {
		query = `?[id, name, file_path, function_hash] := *mirage_function{id, name, file_path, function_hash}, name = $name :sort id :limit 1`
		params = map[string]any{"name": ref.Name}
	} else {
		query = `?[id, name, file_path, function_hash] := *mirage_function{id, name, file_path, function_hash}, id = $id`
		params = map[string]any{"id": ref.ID}
	}

	res, err := b.db.RunReadOnly(query, params)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}

	row := res.Rows[0]
	fn := &cfgmodel.Function{}
	fn.ID = toInt64(row[0])
	fn.Name, _ = row[1].(string)
	fn.FilePath, _ = row[2].(string)
	if hs, ok := row[3].(string); ok && hs != "" {
		fn.FunctionHash = decodeHashHex(hs)
	}
	return fn, nil
}

func (b *Backend) Blocks(ctx context.Context, functionID int64) ([]store.RawBlock, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`
		?[block_id, stable_order, kind, terminator_json, source_file, start_line, start_col, end_line, end_col] :=
			*mirage_block{block_id, function_id, stable_order, kind, terminator_json, source_file, start_line, start_col, end_line, end_col},
			function_id = $fid
		:sort stable_order`, map[string]any{"fid": functionID})
	if err != nil {
		return nil, err
	}

	out := make([]store.RawBlock, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, store.RawBlock{
			BlockID:        toInt64(row[0]),
			StableOrder:    toInt64(row[1]),
			Kind:           asString(row[2]),
			TerminatorJSON: asString(row[3]),
			SourceFile:     asString(row[4]),
			StartLine:      int(toInt64(row[5])),
			StartCol:       int(toInt64(row[6])),
			EndLine:        int(toInt64(row[7])),
			EndCol:         int(toInt64(row[8])),
		})
	}
	return out, nil
}

func (b *Backend) Edges(ctx context.Context, functionID int64) ([]store.RawEdge, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`
		?[from_block_id, to_block_id, kind, case_value] :=
			*mirage_edge{from_block_id, to_block_id, kind, case_value},
			*mirage_block{block_id: from_block_id, function_id},
			function_id = $fid`, map[string]any{"fid": functionID})
	if err != nil {
		return nil, err
	}

	out := make([]store.RawEdge, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, store.RawEdge{
			FromBlockID: toInt64(row[0]),
			ToBlockID:   toInt64(row[1]),
			Kind:        asString(row[2]),
			CaseValue:   toInt64(row[3]),
		})
	}
	return out, nil
}

func (b *Backend) FunctionHash(ctx context.Context, functionID int64) (cfgmodel.FunctionHash, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`?[function_hash] := *mirage_function{id, function_hash}, id = $fid`,
		map[string]any{"fid": functionID})
	if err != nil {
		return cfgmodel.FunctionHash{}, false, err
	}
	if len(res.Rows) == 0 {
		return cfgmodel.FunctionHash{}, false, nil
	}
	hs, _ := res.Rows[0][0].(string)
	if hs == "" {
		return cfgmodel.FunctionHash{}, false, nil
	}
	return decodeHashHex(hs), true, nil
}

func (b *Backend) SetFunctionHash(ctx context.Context, functionID int64, hash cfgmodel.FunctionHash) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.Run(`
		?[id, function_hash] := *mirage_function{id, name, file_path}, id = $fid, function_hash = $hash
		:update mirage_function { id => function_hash }`,
		map[string]any{"fid": functionID, "hash": hash.String()})
	return err
}

func (b *Backend) CachedPaths(ctx context.Context, functionID int64) ([]store.CachedPath, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`
		?[fingerprint, kind, blocks_json, function_hash] :=
			*mirage_path_cache{function_id, fingerprint, kind, blocks_json, function_hash}, function_id = $fid`,
		map[string]any{"fid": functionID})
	if err != nil {
		return nil, err
	}

	out := make([]store.CachedPath, 0, len(res.Rows))
	for _, row := range res.Rows {
		cp := store.CachedPath{Kind: parsePathKind(asString(row[1]))}
		copy(cp.Fingerprint[:], decodeHashHexN(asString(row[0]), 16))
		_ = json.Unmarshal([]byte(asString(row[2])), &cp.Blocks)
		cp.FunctionHash = decodeHashHex(asString(row[3]))
		out = append(out, cp)
	}
	return out, nil
}

func (b *Backend) ReplacePaths(ctx context.Context, functionID int64, paths []store.CachedPath, fnHash cfgmodel.FunctionHash) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// CozoDB has no multi-statement transactions over the Go binding
	// used here, so atomicity is achieved the way the teacher's own
	// migrateCallsCallLine does it: delete, then insert, treating the
	// whole sequence as Mirage's only writer path for this table.
	if _, err := b.db.Run(`?[function_id, fingerprint] := *mirage_path_cache{function_id, fingerprint}, function_id = $fid :rm mirage_path_cache {function_id, fingerprint}`,
		map[string]any{"fid": functionID}); err != nil {
		return fmt.Errorf("invalidate path cache: %w", err)
	}

	for _, p := range paths {
		blocksJSON, _ := json.Marshal(p.Blocks)
		params := map[string]any{
			"fid":    functionID,
			"fp":     p.Fingerprint.String(),
			"kind":   p.Kind.String(),
			"blocks": string(blocksJSON),
			"hash":   fnHash.String(),
		}
		if _, err := b.db.Run(`
			?[function_id, fingerprint, kind, blocks_json, function_hash] <- [[$fid, $fp, $kind, $blocks, $hash]]
			:put mirage_path_cache { function_id, fingerprint => kind, blocks_json, function_hash }`, params); err != nil {
			return fmt.Errorf("insert path: %w", err)
		}
	}

	if _, err := b.db.Run(`
		?[id, function_hash] := *mirage_function{id, name, file_path}, id = $fid, function_hash = $hash
		:update mirage_function { id => function_hash }`,
		map[string]any{"fid": functionID, "hash": fnHash.String()}); err != nil {
		return fmt.Errorf("update function hash: %w", err)
	}

	return nil
}

func (b *Backend) InvalidatePaths(ctx context.Context, functionID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.Run(`?[function_id, fingerprint] := *mirage_path_cache{function_id, fingerprint}, function_id = $fid :rm mirage_path_cache {function_id, fingerprint}`,
		map[string]any{"fid": functionID})
	return err
}

func (b *Backend) CallEdges(ctx context.Context, functionID int64, direction string) ([]store.CallEdge, error) {
	has, err := b.HasCallGraph(ctx)
	if err != nil || !has {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	field := "caller_id"
	if direction == "in" {
		field = "callee_id"
	}
	res, err := b.db.RunReadOnly(fmt.Sprintf(`?[caller_id, callee_id] := *mirage_call_edge{caller_id, callee_id}, %s = $fid`, field),
		map[string]any{"fid": functionID})
	if err != nil {
		return nil, err
	}

	out := make([]store.CallEdge, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, store.CallEdge{CallerID: toInt64(row[0]), CalleeID: toInt64(row[1])})
	}
	return out, nil
}

func (b *Backend) HasCallGraph(ctx context.Context) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`?[caller_id] := *mirage_call_edge{caller_id} :limit 1`, nil)
	if err != nil {
		return false, err
	}
	return len(res.Rows) > 0, nil
}

func (b *Backend) AllFunctions(ctx context.Context) ([]cfgmodel.Function, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`?[id, name, file_path, function_hash] := *mirage_function{id, name, file_path, function_hash} :sort id`, nil)
	if err != nil {
		return nil, err
	}

	out := make([]cfgmodel.Function, 0, len(res.Rows))
	for _, row := range res.Rows {
		fn := cfgmodel.Function{ID: toInt64(row[0]), Name: asString(row[1]), FilePath: asString(row[2])}
		if hs := asString(row[3]); hs != "" {
			fn.FunctionHash = decodeHashHex(hs)
		}
		out = append(out, fn)
	}
	return out, nil
}

func (b *Backend) FindPathOwner(ctx context.Context, fingerprint cfgmodel.PathFingerprint) (int64, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res, err := b.db.RunReadOnly(`
		?[function_id] := *mirage_path_cache{function_id, fingerprint}, fingerprint = $fp :limit 1`,
		map[string]any{"fp": fingerprint.String()})
	if err != nil {
		return 0, false, err
	}
	if len(res.Rows) == 0 {
		return 0, false, nil
	}
	return toInt64(res.Rows[0][0]), true, nil
}

func (b *Backend) Stats(ctx context.Context) (store.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := func(query string) int {
		res, err := b.db.RunReadOnly(query, nil)
		if err != nil || len(res.Rows) == 0 {
			return 0
		}
		return int(toInt64(res.Rows[0][0]))
	}

	return store.Stats{
		Functions: count(`?[count(id)] := *mirage_function{id}`),
		Blocks:    count(`?[count(block_id)] := *mirage_block{block_id}`),
		Edges:     count(`?[count(from_block_id)] := *mirage_edge{from_block_id}`),
		Paths:     count(`?[count(fingerprint)] := *mirage_path_cache{fingerprint}`),
		CallEdges: count(`?[count(caller_id)] := *mirage_call_edge{caller_id}`),
	}, nil
}
