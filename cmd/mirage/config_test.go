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
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStoreTarget_ExplicitFlagWins(t *testing.T) {
	t.Setenv("MIRAGE_DB_PATH", "/tmp/from-env")
	t.Setenv("MIRAGE_BACKEND", "sql")

	path, backend, err := resolveStoreTarget(GlobalFlags{DBPath: "/tmp/from-flag", Backend: "cozo"})
	if err != nil {
		t.Fatalf("resolveStoreTarget() error = %v", err)
	}
	if path != "/tmp/from-flag" {
		t.Fatalf("path = %q, want %q", path, "/tmp/from-flag")
	}
	if backend != "cozo" {
		t.Fatalf("backend = %q, want %q", backend, "cozo")
	}
}

func TestResolveStoreTarget_EnvOverridesConfig(t *testing.T) {
	t.Setenv("MIRAGE_DB_PATH", "/tmp/from-env")
	t.Setenv("MIRAGE_BACKEND", "")

	repo := t.TempDir()
	mustMkdirAll(t, filepath.Join(repo, projectConfigDir))
	mustWriteFile(t, filepath.Join(repo, projectConfigDir, projectConfigFile),
		"db_path: /tmp/project-configured\n")

	t.Chdir(repo)

	path, _, err := resolveStoreTarget(GlobalFlags{})
	if err != nil {
		t.Fatalf("resolveStoreTarget() error = %v", err)
	}
	if path != "/tmp/from-env" {
		t.Fatalf("path = %q, want %q", path, "/tmp/from-env")
	}
}

func TestResolveStoreTarget_ProjectConfigDBPath(t *testing.T) {
	t.Setenv("MIRAGE_DB_PATH", "")
	t.Setenv("MIRAGE_BACKEND", "")

	repo := t.TempDir()
	mustMkdirAll(t, filepath.Join(repo, projectConfigDir))
	mustWriteFile(t, filepath.Join(repo, projectConfigDir, projectConfigFile),
		"project_id: demo\ndb_path: /tmp/project-configured\nbackend: sql\n")

	t.Chdir(repo)

	path, backend, err := resolveStoreTarget(GlobalFlags{})
	if err != nil {
		t.Fatalf("resolveStoreTarget() error = %v", err)
	}
	if path != "/tmp/project-configured" {
		t.Fatalf("path = %q, want %q", path, "/tmp/project-configured")
	}
	if backend != "sql" {
		t.Fatalf("backend = %q, want %q", backend, "sql")
	}
}

func TestResolveStoreTarget_ConventionalDefault(t *testing.T) {
	t.Setenv("MIRAGE_DB_PATH", "")
	t.Setenv("MIRAGE_BACKEND", "")

	home := t.TempDir()
	t.Setenv("HOME", home)

	repo := t.TempDir()
	t.Chdir(repo)

	path, _, err := resolveStoreTarget(GlobalFlags{})
	if err != nil {
		t.Fatalf("resolveStoreTarget() error = %v", err)
	}
	want := filepath.Join(home, ".mirage", "data", filepath.Base(repo))
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}

func mustMkdirAll(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", dir, err)
	}
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
}
