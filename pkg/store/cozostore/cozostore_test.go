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

//go:build cgo

package cozostore

import (
	"context"
	"testing"

	"github.com/oldnordic/mirage/pkg/store"
)

// setupTestBackend opens a fresh CozoDB-backed store in a temp dir. The
// caller is responsible for Close().
func setupTestBackend(t *testing.T) *Backend {
	t.Helper()
	adapter, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	b, ok := adapter.(*Backend)
	if !ok {
		t.Fatalf("Open() returned %T, want *Backend", adapter)
	}
	return b
}

func TestOpen_SeedsSchemaVersion(t *testing.T) {
	b := setupTestBackend(t)
	defer b.Close()

	v, err := b.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 1 {
		t.Fatalf("SchemaVersion() = %d, want 1", v)
	}
}

func TestResolveFunction_NotFound(t *testing.T) {
	b := setupTestBackend(t)
	defer b.Close()

	fn, err := b.ResolveFunction(context.Background(), store.FunctionRef{ID: 999})
	if err != nil {
		t.Fatalf("ResolveFunction() error = %v", err)
	}
	if fn != nil {
		t.Fatalf("ResolveFunction() = %+v, want nil", fn)
	}
}

func TestAllFunctions_EmptyStore(t *testing.T) {
	b := setupTestBackend(t)
	defer b.Close()

	fns, err := b.AllFunctions(context.Background())
	if err != nil {
		t.Fatalf("AllFunctions() error = %v", err)
	}
	if len(fns) != 0 {
		t.Fatalf("AllFunctions() = %v, want empty", fns)
	}
}

func TestResolveFunction_ByIDAndName(t *testing.T) {
	b := setupTestBackend(t)
	defer b.Close()

	if _, err := b.db.Run(
		`?[id, name, file_path, function_hash] <- [[1, "pkg.Foo", "pkg/foo.go", ""]]
		 :put mirage_function { id => name, file_path, function_hash }`, nil); err != nil {
		t.Fatalf("seed function: %v", err)
	}

	byID, err := b.ResolveFunction(context.Background(), store.FunctionRef{ID: 1})
	if err != nil {
		t.Fatalf("ResolveFunction(by id) error = %v", err)
	}
	if byID == nil || byID.Name != "pkg.Foo" {
		t.Fatalf("ResolveFunction(by id) = %+v, want name pkg.Foo", byID)
	}

	byName, err := b.ResolveFunction(context.Background(), store.FunctionRef{Name: "pkg.Foo"})
	if err != nil {
		t.Fatalf("ResolveFunction(by name) error = %v", err)
	}
	if byName == nil || byName.ID != 1 {
		t.Fatalf("ResolveFunction(by name) = %+v, want id 1", byName)
	}
}

func TestStats_ZeroOnFreshStore(t *testing.T) {
	b := setupTestBackend(t)
	defer b.Close()

	stats, err := b.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats != (store.Stats{}) {
		t.Fatalf("Stats() = %+v, want zero value", stats)
	}
}

func TestClose_Idempotent(t *testing.T) {
	b := setupTestBackend(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
