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
	"github.com/intel/compactcore/pkg/zone"
)

// CompactionSuitable reports whether z is worth compacting for order,
// combining a watermark check with the fragmentation index (spec 4.2).
// Watermarks already satisfied means nothing to gain; a low
// fragmentation index means the zone is short on memory rather than
// fragmented, and compaction cannot manufacture pages it does not have.
func CompactionSuitable(alloc Allocator, cc *Control) Result {
	z := cc.Zone
	if alloc.WatermarkOK(z, cc.Order, cc.ClassZoneIdx, cc.AllocFlags) {
		return Success
	}
	if cc.Order == 0 {
		return Continue
	}
	fi := alloc.FragmentationIndex(z, cc.Order)
	if fi < 0 {
		// Negative means the watermark check above should have already
		// succeeded; treat as "not actually short of memory".
		return Continue
	}
	if fi <= tunable.ExtfragThreshold {
		return notSuitableZone
	}
	return Continue
}

// CompactFinished decides whether a pass should stop, matching
// compact_finished's priority of termination reasons (spec 4.5):
// contention/cancellation first, then scanner-crossing, then whether
// the requested order is now satisfiable.
func CompactFinished(alloc Allocator, cc *Control) Result {
	if cc.canceled() || cc.Contended {
		return Contended
	}

	if cc.ScannersMet() {
		// Mark the skip bitmap stale for any direct compaction that
		// follows; the expensive resample only happens lazily, at the
		// start of whichever pass next restarts with WholeZone set
		// (see CompactZone), not here on every crossing.
		cc.Zone.BlockskipFlush = true
		if cc.WholeZone {
			return Complete
		}
		return PartialSkipped
	}

	if cc.Order == 0 {
		return Continue
	}

	if alloc.WatermarkOK(cc.Zone, cc.Order, cc.ClassZoneIdx, cc.AllocFlags) {
		if fallback, ok := alloc.FindSuitableFallback(cc.Zone, cc.Order, cc.Migratetype); ok {
			_ = fallback
			return Success
		}
	}

	return Continue
}

// CompactZone runs one compact_zone invocation to completion: it
// alternates isolating migration sources and free destinations,
// handing batches to mig whenever the scanners accumulate enough work,
// until CompactFinished says to stop. CompactZone always releases cc's
// local lists before returning, preserving the containment invariant
// on every exit path regardless of how it exits.
func CompactZone(cc *Control, alloc Allocator, mig Migrator, dst Destinations) Result {
	defer cc.Release()

	switch CompactionSuitable(alloc, cc) {
	case notSuitableZone:
		return Skipped
	case Success:
		return Success
	}

	z := cc.Zone
	if cc.WholeZone {
		z.ResetIsolationSuitable(nil)
	}

	for {
		if res := CompactFinished(alloc, cc); res != Continue {
			return res
		}

		if block, ok := FastFindMigrateBlock(cc); ok {
			cc.FastStartPFN = block
		}

		migBlockEnd := z.PageblockStart(cc.MigratePFN) + (zone.PFN(1) << uint(z.PageblockOrder))
		if migBlockEnd > cc.FreePFN {
			migBlockEnd = cc.FreePFN
		}
		beforeIsolated := cc.Migratepages.Len()
		next := IsolateMigratepagesBlock(cc, cc.MigratePFN, migBlockEnd, IsolateAsyncMigrate)
		if next == 0 {
			cc.Contended = true
			return Contended
		}
		z.AddIsolatedMigrate(uint64(cc.Migratepages.Len() - beforeIsolated))
		scanned := int(next - cc.MigratePFN)
		cc.TotalMigrateScanned += scanned
		z.AddMigrateScanned(uint64(scanned))
		z.UpdateCachedMigrate(cc.Mode.ScanClass(), next)
		cc.MigratePFN = next

		if cc.Migratepages.Empty() {
			continue
		}

		if freeStart, ok := FastFindFreepages(cc); ok {
			cc.FreePFN = freeStart + (zone.PFN(1) << uint(z.PageblockOrder))
		}
		freeBlockStart := z.PageblockStart(cc.FreePFN - 1)
		n := IsolateFreepagesBlock(cc, freeBlockStart, cc.FreePFN, cc.Freepages, FreeScanStride(cc, false), false)
		cc.TotalFreeScanned += n
		z.AddFreeScanned(uint64(n))
		z.AddIsolatedFree(uint64(n))
		if n == 0 {
			z.UpdatePageblockSkip(freeBlockStart)
		}
		cc.FreePFN = freeBlockStart

		if cc.Freepages.Len() < cc.Migratepages.Len() {
			// Not enough destinations yet; let the next loop iteration
			// isolate more free pages before migrating.
			continue
		}

		migrated, err := mig.MigratePages(cc, cc.Migratepages, dst)
		z.AddMigrated(uint64(migrated))
		if err != nil {
			z.AddFailure()
			putback := cc.Migratepages.Drain()
			for _, p := range putback {
				if p.IsMovable() {
					p.Flags &^= zone.FlagIsolated
				} else {
					p.Flags |= zone.FlagLRU
				}
			}
			continue
		}
		z.AddSuccess()
	}
}
