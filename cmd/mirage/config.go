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

	"gopkg.in/yaml.v3"

	merrors "github.com/oldnordic/mirage/internal/errors"
)

const (
	projectConfigDir  = ".mirage"
	projectConfigFile = "project.yaml"
)

// ProjectConfig is the optional .mirage/project.yaml file: a thin,
// yaml.v3-backed settings file in the same spirit as the teacher's
// .cie/project.yaml, scoped to what Mirage itself needs (a default store
// path and a default backend).
type ProjectConfig struct {
	Version    string `yaml:"version"`
	ProjectID  string `yaml:"project_id"`
	DBPath     string `yaml:"db_path"`
	Backend    string `yaml:"backend"`
}

// loadProjectConfig reads .mirage/project.yaml from the current directory
// or its ancestors. A missing file is not an error: callers fall back to
// environment variables and conventional defaults.
func loadProjectConfig() (*ProjectConfig, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, false
	}

	for {
		path := filepath.Join(dir, projectConfigDir, projectConfigFile)
		if data, err := os.ReadFile(path); err == nil {
			var cfg ProjectConfig
			if yaml.Unmarshal(data, &cfg) == nil {
				return &cfg, true
			}
			return nil, false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}

// resolveStoreTarget resolves the store path and backend name with the
// precedence spec.md's ambient config layer calls for: explicit --db/
// --backend flag > MIRAGE_DB_PATH/MIRAGE_BACKEND environment variable >
// .mirage/project.yaml > conventional default (~/.mirage/data/<project>).
func resolveStoreTarget(globals GlobalFlags) (path string, backend string, err error) {
	backend = globals.Backend
	if backend == "" {
		backend = os.Getenv("MIRAGE_BACKEND")
	}

	if globals.DBPath != "" {
		return globals.DBPath, backend, nil
	}
	if envPath := os.Getenv("MIRAGE_DB_PATH"); envPath != "" {
		return envPath, backend, nil
	}

	cfg, ok := loadProjectConfig()
	if ok {
		if backend == "" {
			backend = cfg.Backend
		}
		if cfg.DBPath != "" {
			return cfg.DBPath, backend, nil
		}
	}

	projectID := "default"
	if ok && cfg.ProjectID != "" {
		projectID = cfg.ProjectID
	} else if wd, wdErr := os.Getwd(); wdErr == nil {
		projectID = filepath.Base(wd)
	}

	home, herr := os.UserHomeDir()
	if herr != nil {
		return "", "", merrors.NewInternalError(
			"Cannot determine home directory",
			"Operating system did not provide a user home directory",
			"Set MIRAGE_DB_PATH or pass --db explicitly",
			herr)
	}
	return filepath.Join(home, ".mirage", "data", projectID), backend, nil
}
