// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compaction

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/compactcore/pkg/metrics"
	"github.com/intel/compactcore/pkg/zone"
)

// Prometheus metric descriptor indices and descriptor table, following
// the same fixed-index-into-a-table layout as every other collector in
// this codebase.
const (
	migrateScannedDesc = iota
	freeScannedDesc
	isolatedMigrateDesc
	isolatedFreeDesc
	migratedDesc
	stallDesc
	failDesc
	successDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	migrateScannedDesc: prometheus.NewDesc(
		"compact_migrate_scanned",
		"Pages scanned by the migrate scanner.",
		[]string{"zone"}, nil,
	),
	freeScannedDesc: prometheus.NewDesc(
		"compact_free_scanned",
		"Pages scanned by the free scanner.",
		[]string{"zone"}, nil,
	),
	isolatedMigrateDesc: prometheus.NewDesc(
		"compact_isolated_migrate",
		"Pages isolated as migration sources.",
		[]string{"zone"}, nil,
	),
	isolatedFreeDesc: prometheus.NewDesc(
		"compact_isolated_free",
		"Pages isolated as free destinations.",
		[]string{"zone"}, nil,
	),
	migratedDesc: prometheus.NewDesc(
		"compact_migrated",
		"Pages the migration engine actually relocated.",
		[]string{"zone"}, nil,
	),
	stallDesc: prometheus.NewDesc(
		"compact_stall",
		"Contention or throttling stalls observed during compaction.",
		[]string{"zone"}, nil,
	),
	failDesc: prometheus.NewDesc(
		"compact_fail",
		"Migration batches the migration engine failed.",
		[]string{"zone"}, nil,
	),
	successDesc: prometheus.NewDesc(
		"compact_success",
		"Migration batches the migration engine completed without error.",
		[]string{"zone"}, nil,
	),
}

// Registry supplies the set of zones a Collector should report on. A
// fixed set of zones is the common case; node-aware callers can return
// a live slice that grows as zones come online.
type Registry interface {
	Zones() []*zone.Zone
}

type collector struct {
	reg Registry
}

// NewCollector returns a prometheus.Collector reporting the compaction
// counters (spec SUPPLEMENT: compact_migrate_scanned and friends) for
// every zone reg currently knows about.
func NewCollector(reg Registry) (prometheus.Collector, error) {
	return &collector{reg: reg}, nil
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, z := range c.reg.Zones() {
		s := z.StatsSnapshot()
		ch <- prometheus.MustNewConstMetric(descriptors[migrateScannedDesc], prometheus.CounterValue, float64(s.MigrateScanned), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[freeScannedDesc], prometheus.CounterValue, float64(s.FreeScanned), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[isolatedMigrateDesc], prometheus.CounterValue, float64(s.IsolatedMigrate), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[isolatedFreeDesc], prometheus.CounterValue, float64(s.IsolatedFree), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[migratedDesc], prometheus.CounterValue, float64(s.Migrated), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[stallDesc], prometheus.CounterValue, float64(s.Stalls), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[failDesc], prometheus.CounterValue, float64(s.Failures), z.Name)
		ch <- prometheus.MustNewConstMetric(descriptors[successDesc], prometheus.CounterValue, float64(s.Successes), z.Name)
	}
}

// Register wires a Collector for reg into the metrics package's
// built-in collector set, the same registration path every other
// package-level collector in this tree uses.
func Register(reg Registry) {
	metrics.RegisterCollector("compaction", func() (prometheus.Collector, error) {
		return NewCollector(reg)
	})
}
