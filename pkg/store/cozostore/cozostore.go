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

// Package cozostore implements store.Adapter over the embedded CozoDB
// engine (pkg/cozodb), Mirage's key-value-adjacency backend. It mirrors
// the schema-bootstrap and query idioms of the teacher's embedded graph
// backend, but defines its own Datalog relations for CFG blocks, edges,
// the path cache, and the optional call graph.
package cozostore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	cozo "github.com/oldnordic/mirage/pkg/cozodb"
	"github.com/oldnordic/mirage/pkg/store"
)

// Backend implements store.Adapter over an embedded CozoDB instance.
type Backend struct {
	db     *cozo.CozoDB
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) a CozoDB-backed Mirage store at
// dataDir using the "sqlite" storage engine, and ensures its schema.
func Open(dataDir string) (store.Adapter, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := cozo.New("sqlite", dataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb: %w", err)
	}

	b := &Backend{db: &db}
	if err := b.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Register installs this backend's opener into pkg/store's dispatch
// table. cmd/mirage calls this once during startup.
func Register() {
	store.Register(store.BackendCozo, Open)
}

// ensureSchema creates Mirage's relations if they don't already exist.
// Table creation is idempotent: CozoDB's "already exists" error is
// swallowed the same way the teacher's EnsureSchema does.
func (b *Backend) ensureSchema() error {
	tables := []string{
		`:create mirage_meta { key: String => value: String }`,
		`:create mirage_function { id: Int => name: String, file_path: String, function_hash: String default '' }`,
		`:create mirage_block { block_id: Int => function_id: Int, stable_order: Int, kind: String, terminator_json: String, source_file: String default '', start_line: Int default 0, start_col: Int default 0, end_line: Int default 0, end_col: Int default 0 }`,
		`:create mirage_edge { from_block_id: Int, to_block_id: Int => kind: String, case_value: Int default 0 }`,
		`:create mirage_path_cache { function_id: Int, fingerprint: String => kind: String, blocks_json: String, function_hash: String }`,
		`:create mirage_call_edge { caller_id: Int, callee_id: Int => }`,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range tables {
		if _, err := b.db.Run(t, nil); err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "already exists") || strings.Contains(errStr, "conflicts with an existing one") {
				continue
			}
			return fmt.Errorf("create table: %w", err)
		}
	}

	version, err := b.schemaVersionLocked()
	if err != nil {
		return err
	}
	if version == 0 {
		if _, err := b.db.Run(`?[key, value] <- [["schema_version", "1"]] :put mirage_meta { key, value }`, nil); err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
	}
	return nil
}

func (b *Backend) schemaVersionLocked() (int, error) {
	res, err := b.db.Run(`?[value] := *mirage_meta{key, value}, key = "schema_version"`, nil)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	s, _ := res.Rows[0][0].(string)
	var v int
	fmt.Sscanf(s, "%d", &v)
	return v, nil
}

func (b *Backend) SchemaVersion(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schemaVersionLocked()
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.db.Close()
	return nil
}
