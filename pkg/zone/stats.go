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

package zone

// StatsSnapshot returns a copy of the zone's accumulated counters,
// safe to read concurrently with any of the Add* mutators below.
func (z *Zone) StatsSnapshot() Stats {
	z.statsMu.Lock()
	defer z.statsMu.Unlock()
	return z.Stats
}

// AddMigrateScanned accumulates pages examined by the migrate scanner.
func (z *Zone) AddMigrateScanned(n uint64) {
	z.statsMu.Lock()
	z.Stats.MigrateScanned += n
	z.statsMu.Unlock()
}

// AddFreeScanned accumulates pages examined by the free scanner.
func (z *Zone) AddFreeScanned(n uint64) {
	z.statsMu.Lock()
	z.Stats.FreeScanned += n
	z.statsMu.Unlock()
}

// AddIsolatedMigrate accumulates pages isolated as migration sources.
func (z *Zone) AddIsolatedMigrate(n uint64) {
	z.statsMu.Lock()
	z.Stats.IsolatedMigrate += n
	z.statsMu.Unlock()
}

// AddIsolatedFree accumulates pages isolated as free destinations.
func (z *Zone) AddIsolatedFree(n uint64) {
	z.statsMu.Lock()
	z.Stats.IsolatedFree += n
	z.statsMu.Unlock()
}

// AddMigrated accumulates pages the migration engine actually moved.
func (z *Zone) AddMigrated(n uint64) {
	z.statsMu.Lock()
	z.Stats.Migrated += n
	z.statsMu.Unlock()
}

// AddStall counts one contention/throttle stall.
func (z *Zone) AddStall() {
	z.statsMu.Lock()
	z.Stats.Stalls++
	z.statsMu.Unlock()
}

// AddFailure counts one failed migration batch.
func (z *Zone) AddFailure() {
	z.statsMu.Lock()
	z.Stats.Failures++
	z.statsMu.Unlock()
}

// AddSuccess counts one migration batch the migration engine completed
// without error.
func (z *Zone) AddSuccess() {
	z.statsMu.Lock()
	z.Stats.Successes++
	z.statsMu.Unlock()
}
