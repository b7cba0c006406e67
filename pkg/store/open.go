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

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	merrors "github.com/oldnordic/mirage/internal/errors"
)

// Backend names accepted by --backend/MIRAGE_BACKEND.
const (
	BackendCozo = "cozo"
	BackendSQL  = "sql"
)

// Opener is implemented by each backend package (cozostore.Open,
// sqlstore.Open) and registered into the Open dispatcher below. Mirage
// avoids an import cycle by having cmd/mirage wire both openers in once
// at startup, rather than pkg/store importing the backend packages
// directly.
type Opener func(path string) (Adapter, error)

var openers = map[string]Opener{}

// Register installs a backend opener under name. cmd/mirage calls this
// once per backend package during initialization.
func Register(name string, open Opener) {
	openers[name] = open
}

// Open resolves which backend owns path and opens it. Resolution order:
// an explicit backend name (from --backend or MIRAGE_BACKEND) wins;
// otherwise the path's file extension is sniffed (".db"/".sqlite" -> sql,
// a directory or no extension -> cozo); if the path does not exist yet,
// the explicit backend or extension sniff is mandatory.
func Open(path, explicitBackend string) (Adapter, error) {
	name := explicitBackend
	if name == "" {
		name = sniffBackend(path)
	}
	if name == "" {
		return nil, merrors.NewUserError("AmbiguousBackend",
			"Cannot determine store backend",
			fmt.Sprintf("Path %q has an unrecognized extension and is not an existing directory", path),
			"Pass --backend cozo or --backend sql",
			nil)
	}

	opener, ok := openers[name]
	if !ok {
		return nil, merrors.NewUserError("UnknownBackend",
			"Unknown store backend",
			name,
			"Valid backends are \"cozo\" and \"sql\"",
			nil)
	}

	adapter, err := opener(path)
	if err != nil {
		return nil, merrors.ErrBackendUnavailable(path, err)
	}

	version, err := adapter.SchemaVersion(context.Background())
	if err != nil {
		_ = adapter.Close()
		return nil, merrors.ErrBackendUnavailable(path, err)
	}
	if version < MinSchemaVersion {
		_ = adapter.Close()
		return nil, merrors.ErrSchemaIncompatible(version, MinSchemaVersion)
	}

	return adapter, nil
}

func sniffBackend(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQL
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return BackendCozo
	}
	if ext == "" {
		return BackendCozo
	}
	return ""
}
