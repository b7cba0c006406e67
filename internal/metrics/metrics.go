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

// Package metrics accumulates Prometheus collectors for a single Mirage
// command invocation and, when requested, writes them to a textfile for
// node_exporter's textfile collector to pick up. Mirage is single-shot
// (spec.md §5: no daemon, no background thread), so there is no /metrics
// endpoint to scrape; the textfile pattern is the standard Prometheus
// idiom for batch jobs.
package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
)

// Registry bundles the counters and histograms one Mirage command run
// reports. Callers construct it once per process.
type Registry struct {
	reg *prometheus.Registry

	PathsEnumerated  prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	DominatorSeconds prometheus.Histogram
}

// New creates a fresh, unregistered-elsewhere Registry for one command run.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		PathsEnumerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirage_paths_enumerated_total",
			Help: "Total number of paths produced by the path engine across this run.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirage_path_cache_hits_total",
			Help: "Path cache queries satisfied without re-enumeration.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirage_path_cache_misses_total",
			Help: "Path cache queries that required invalidation and re-enumeration.",
		}),
		DominatorSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mirage_dominator_computation_seconds",
			Help:    "Wall time spent computing a dominator tree for one function.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.PathsEnumerated, r.CacheHits, r.CacheMisses, r.DominatorSeconds)
	return r
}

// WriteFile writes the registry's current values to path in the
// Prometheus text exposition format, suitable for a textfile collector
// directory. It overwrites any existing file at path.
func (r *Registry) WriteFile(path string) error {
	mfs, err := r.reg.Gather()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "mirage-metrics-*")
	if err != nil {
		return err
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// PushTo pushes the registry's current values to a Prometheus Pushgateway,
// for deployments that aggregate batch-job metrics centrally instead of
// via textfile collection.
func (r *Registry) PushTo(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(r.reg).Push()
}
