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

// Package sqlstore implements store.Adapter over modernc.org/sqlite, a
// pure-Go, cgo-free SQLite driver. This is Mirage's relational backend,
// the counterpart to pkg/store/cozostore's key-value-adjacency backend.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// schema is the relational counterpart of cozostore's Datalog :create
// statements: one table per entity/edge kind, plus a schema_version row.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS functions (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	function_hash BLOB
);
CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);

CREATE TABLE IF NOT EXISTS blocks (
	block_id INTEGER PRIMARY KEY,
	function_id INTEGER NOT NULL,
	stable_order INTEGER NOT NULL,
	kind TEXT NOT NULL,
	terminator_json TEXT NOT NULL,
	source_file TEXT,
	start_line INTEGER,
	start_col INTEGER,
	end_line INTEGER,
	end_col INTEGER
);
CREATE INDEX IF NOT EXISTS idx_blocks_function ON blocks(function_id, stable_order);

CREATE TABLE IF NOT EXISTS edges (
	from_block_id INTEGER NOT NULL,
	to_block_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	case_value INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_block_id);

CREATE TABLE IF NOT EXISTS path_cache (
	function_id INTEGER NOT NULL,
	fingerprint BLOB NOT NULL,
	kind TEXT NOT NULL,
	blocks_json TEXT NOT NULL,
	function_hash BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (function_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS call_edges (
	caller_id INTEGER NOT NULL,
	callee_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_edges_caller ON call_edges(caller_id);
CREATE INDEX IF NOT EXISTS idx_call_edges_callee ON call_edges(callee_id);
`

// Backend is the sqlstore.Adapter implementation.
type Backend struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed Mirage store at
// path and ensures its schema exists.
func Open(path string) (store.Adapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, store.CurrentSchemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed schema_version: %w", err)
		}
	}

	return &Backend{db: db}, nil
}

// Register installs this backend's opener into pkg/store's dispatch
// table. cmd/mirage calls this once during startup.
func Register() {
	store.Register(store.BackendSQL, Open)
}

func (b *Backend) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := b.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	return v, err
}

func (b *Backend) ResolveFunction(ctx context.Context, ref store.FunctionRef) (*cfgmodel.Function, error) {
	var row *sql.Row
	if ref.Name != "" {
		row = b.db.QueryRowContext(ctx,
			`SELECT id, name, file_path, function_hash FROM functions WHERE name = ? ORDER BY id ASC LIMIT 1`, ref.Name)
	} else {
		row = b.db.QueryRowContext(ctx,
			`SELECT id, name, file_path, function_hash FROM functions WHERE id = ?`, ref.ID)
	}

	var fn cfgmodel.Function
	var hashBytes []byte
	if err := row.Scan(&fn.ID, &fn.Name, &fn.FilePath, &hashBytes); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(hashBytes) == 32 {
		copy(fn.FunctionHash[:], hashBytes)
	}
	return &fn, nil
}

func (b *Backend) Blocks(ctx context.Context, functionID int64) ([]store.RawBlock, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT block_id, stable_order, kind, terminator_json, source_file, start_line, start_col, end_line, end_col
		 FROM blocks WHERE function_id = ? ORDER BY stable_order ASC`, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RawBlock
	for rows.Next() {
		var rb store.RawBlock
		var sourceFile sql.NullString
		var startLine, startCol, endLine, endCol sql.NullInt64
		if err := rows.Scan(&rb.BlockID, &rb.StableOrder, &rb.Kind, &rb.TerminatorJSON,
			&sourceFile, &startLine, &startCol, &endLine, &endCol); err != nil {
			return nil, err
		}
		rb.SourceFile = sourceFile.String
		rb.StartLine = int(startLine.Int64)
		rb.StartCol = int(startCol.Int64)
		rb.EndLine = int(endLine.Int64)
		rb.EndCol = int(endCol.Int64)
		out = append(out, rb)
	}
	return out, rows.Err()
}

func (b *Backend) Edges(ctx context.Context, functionID int64) ([]store.RawEdge, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT e.from_block_id, e.to_block_id, e.kind, e.case_value
		FROM edges e
		JOIN blocks bf ON bf.block_id = e.from_block_id
		WHERE bf.function_id = ?`, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RawEdge
	for rows.Next() {
		var re store.RawEdge
		if err := rows.Scan(&re.FromBlockID, &re.ToBlockID, &re.Kind, &re.CaseValue); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (b *Backend) FunctionHash(ctx context.Context, functionID int64) (cfgmodel.FunctionHash, bool, error) {
	var hashBytes []byte
	err := b.db.QueryRowContext(ctx, `SELECT function_hash FROM functions WHERE id = ?`, functionID).Scan(&hashBytes)
	if err == sql.ErrNoRows || len(hashBytes) != 32 {
		return cfgmodel.FunctionHash{}, false, nil
	}
	if err != nil {
		return cfgmodel.FunctionHash{}, false, err
	}
	var h cfgmodel.FunctionHash
	copy(h[:], hashBytes)
	return h, true, nil
}

func (b *Backend) SetFunctionHash(ctx context.Context, functionID int64, hash cfgmodel.FunctionHash) error {
	_, err := b.db.ExecContext(ctx, `UPDATE functions SET function_hash = ? WHERE id = ?`, hash[:], functionID)
	return err
}

func (b *Backend) CachedPaths(ctx context.Context, functionID int64) ([]store.CachedPath, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT fingerprint, kind, blocks_json, function_hash FROM path_cache WHERE function_id = ?`, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CachedPath
	for rows.Next() {
		var cp store.CachedPath
		var fpBytes, hashBytes []byte
		var kindStr, blocksJSON string
		if err := rows.Scan(&fpBytes, &kindStr, &blocksJSON, &hashBytes); err != nil {
			return nil, err
		}
		copy(cp.Fingerprint[:], fpBytes)
		copy(cp.FunctionHash[:], hashBytes)
		cp.Kind = parsePathKind(kindStr)
		cp.Blocks = decodeBlocksJSON(blocksJSON)
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (b *Backend) ReplacePaths(ctx context.Context, functionID int64, paths []store.CachedPath, fnHash cfgmodel.FunctionHash) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM path_cache WHERE function_id = ?`, functionID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_cache (function_id, fingerprint, kind, blocks_json, function_hash, created_at)
		VALUES (?, ?, ?, ?, ?, strftime('%s','now'))`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, functionID, p.Fingerprint[:], p.Kind.String(), encodeBlocksJSON(p.Blocks), fnHash[:]); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE functions SET function_hash = ? WHERE id = ?`, fnHash[:], functionID); err != nil {
		return err
	}

	return tx.Commit()
}

func (b *Backend) InvalidatePaths(ctx context.Context, functionID int64) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM path_cache WHERE function_id = ?`, functionID)
	return err
}

func (b *Backend) CallEdges(ctx context.Context, functionID int64, direction string) ([]store.CallEdge, error) {
	has, err := b.HasCallGraph(ctx)
	if err != nil || !has {
		return nil, err
	}

	col := "caller_id"
	if direction == "in" {
		col = "callee_id"
	}
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(`SELECT caller_id, callee_id FROM call_edges WHERE %s = ?`, col), functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.CallEdge
	for rows.Next() {
		var ce store.CallEdge
		if err := rows.Scan(&ce.CallerID, &ce.CalleeID); err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

func (b *Backend) HasCallGraph(ctx context.Context) (bool, error) {
	var count int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_edges`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (b *Backend) AllFunctions(ctx context.Context) ([]cfgmodel.Function, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, name, file_path, function_hash FROM functions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cfgmodel.Function
	for rows.Next() {
		var fn cfgmodel.Function
		var hashBytes []byte
		if err := rows.Scan(&fn.ID, &fn.Name, &fn.FilePath, &hashBytes); err != nil {
			return nil, err
		}
		if len(hashBytes) == 32 {
			copy(fn.FunctionHash[:], hashBytes)
		}
		out = append(out, fn)
	}
	return out, rows.Err()
}

func (b *Backend) FindPathOwner(ctx context.Context, fingerprint cfgmodel.PathFingerprint) (int64, bool, error) {
	var functionID int64
	err := b.db.QueryRowContext(ctx, `SELECT function_id FROM path_cache WHERE fingerprint = ? LIMIT 1`, fingerprint[:]).Scan(&functionID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return functionID, true, nil
}

func (b *Backend) Stats(ctx context.Context) (store.Stats, error) {
	var s store.Stats
	for table, dst := range map[string]*int{
		"functions":   &s.Functions,
		"blocks":      &s.Blocks,
		"edges":       &s.Edges,
		"path_cache":  &s.Paths,
		"call_edges":  &s.CallEdges,
	} {
		if err := b.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(dst); err != nil {
			return store.Stats{}, err
		}
	}
	return s, nil
}

func (b *Backend) Close() error { return b.db.Close() }

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
