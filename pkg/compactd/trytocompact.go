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

package compactd

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/intel/compactcore/pkg/compaction"
	"github.com/intel/compactcore/pkg/zone"
)

// TryToCompactPages walks zones, skipping any that are currently
// deferred for order, and runs one async compaction pass (the
// background daemon's priority: cheapest mode, no escalation) against
// the rest. It records each zone's outcome in its deferral tracker and
// returns the best result observed across all zones (spec 4.6's
// defer_compaction / compaction_deferred / compaction_defer_reset
// wiring, applied per zone). Per-zone trouble (a zone lock that
// couldn't be acquired, surfaced as a Contended result) does not abort
// the walk; it is collected alongside the other zones' outcomes and
// returned as a single error so a caller can log the detail without
// losing whatever the rest of the zones accomplished.
func TryToCompactPages(zones []*zone.Zone, order int, alloc compaction.Allocator, mig compaction.Migrator, dst compaction.Destinations, cancel <-chan struct{}) (compaction.Result, error) {
	best := compaction.Skipped
	var errs *multierror.Error

	for _, z := range zones {
		if z.CompactionDeferred(order) {
			if best == compaction.Skipped {
				best = compaction.Deferred
			}
			continue
		}

		cc := compaction.NewControl(z, order, compaction.Async, zone.Movable, false)
		cc.Cancel = cancel
		res := compaction.CompactZone(cc, alloc, mig, dst)

		switch res {
		case compaction.Success:
			z.CompactionDeferReset(order, true)
		case compaction.Complete, compaction.PartialSkipped:
			z.CompactionDeferReset(order, false)
			z.DeferCompaction(order)
		case compaction.Contended:
			// Contention is transient; it says nothing about whether
			// this zone is fragmentation-resistant, so deferral state
			// is left untouched, but it is still worth reporting.
			errs = multierror.Append(errs, fmt.Errorf("zone %s: order %d: compaction contended (zone lock unavailable)", z.Name, order))
		}

		if better(res, best) {
			best = res
		}
	}

	return best, errs.ErrorOrNil()
}

// better ranks compaction.Result values the way a caller polling
// multiple zones cares about: success beats ongoing progress beats
// having given up.
func better(a, b compaction.Result) bool {
	return rank(a) > rank(b)
}

func rank(r compaction.Result) int {
	switch r {
	case compaction.Success:
		return 5
	case compaction.Continue:
		return 4
	case compaction.Complete, compaction.PartialSkipped:
		return 3
	case compaction.Contended:
		return 2
	case compaction.Deferred:
		return 1
	default: // Skipped
		return 0
	}
}
