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

import (
	"sync"

	logger "github.com/intel/compactcore/pkg/log"
)

var log = logger.NewLogger("zone")

// ScanClass selects which of the two cached migrate-scanner restart
// PFNs a mode uses: async compaction gets its own, sync-light and
// sync-full share the other, exactly as the kernel indexes
// cached_migrate_pfn[] by a single async/!async boolean.
type ScanClass int

const (
	// ScanAsync is the cache slot used by async compaction.
	ScanAsync ScanClass = iota
	// ScanSync is the cache slot shared by sync-light and sync-full.
	ScanSync

	numScanClasses = int(ScanSync) + 1
)

// DeferralState is the exponential-backoff bookkeeping for one order
// within one zone (spec 4.6).
type DeferralState struct {
	Active      bool // true once at least one failure has been recorded
	Considered  int
	Shift       uint
	OrderFailed int
}

// Stats accumulates per-zone compaction counters across invocations
// (spec's SUPPLEMENT: compact_migrate_scanned & co.), independent of
// any Prometheus export layered on top in pkg/compaction.
type Stats struct {
	MigrateScanned  uint64
	FreeScanned     uint64
	IsolatedMigrate uint64
	IsolatedFree    uint64
	Migrated        uint64
	Stalls          uint64
	Successes       uint64
	Failures        uint64
}

// Zone is a contiguous PFN range with free-area buckets, skip-hint
// state and deferral counters, as described in spec section 3.
type Zone struct {
	Name          string
	StartPFN      PFN
	EndPFN        PFN
	PageblockOrder int

	mu sync.Mutex // guards FreeAreas (the "zone free-area lock")

	pages      []Page // dense table indexed by pfn-StartPFN
	pageblocks []Pageblock

	FreeAreas [MaxOrder]*FreeArea

	cachedMigratePFN [numScanClasses]PFN
	cachedFreePFN    PFN
	initMigratePFN   PFN
	initFreePFN      PFN

	BlockskipFlush bool

	deferMu  sync.Mutex
	deferral map[int]*DeferralState

	statsMu sync.Mutex
	Stats   Stats

	// LRUMutex guards LRU list membership and is shared by every zone
	// on the same NUMA node, per spec 3 ("a separate lock guarding LRU
	// lists, kept on the owning node, not the zone").
	LRUMutex *sync.Mutex
}

// New creates a zone spanning [start, end) with the given pageblock
// order (2^pageblockOrder pages per block), all pages initially free
// and movable.
func New(name string, start, end PFN, pageblockOrder int) *Zone {
	if pageblockOrder <= 0 {
		pageblockOrder = DefaultPageblockOrder
	}
	n := int(end - start)
	z := &Zone{
		Name:           name,
		StartPFN:       start,
		EndPFN:         end,
		PageblockOrder: pageblockOrder,
		pages:          make([]Page, n),
		deferral:       make(map[int]*DeferralState),
		LRUMutex:       &sync.Mutex{},
	}
	for order := range z.FreeAreas {
		z.FreeAreas[order] = newFreeArea(order)
	}
	blockPages := PFN(1) << uint(pageblockOrder)
	numBlocks := (n + int(blockPages) - 1) / int(blockPages)
	z.pageblocks = make([]Pageblock, numBlocks)
	for pfn := start; pfn < end; pfn++ {
		p := z.page(pfn)
		p.PFN = pfn
		p.Zone = name
	}
	z.initMigratePFN = start
	z.initFreePFN = end
	z.cachedMigratePFN[ScanAsync] = start
	z.cachedMigratePFN[ScanSync] = start
	z.cachedFreePFN = end
	return z
}

// Contains reports whether pfn lies within the zone's range.
func (z *Zone) Contains(pfn PFN) bool {
	return pfn >= z.StartPFN && pfn < z.EndPFN
}

// page returns a pointer to the dense-table entry for pfn. Callers
// must have already verified Contains(pfn).
func (z *Zone) page(pfn PFN) *Page {
	return &z.pages[int(pfn-z.StartPFN)]
}

// Page looks up page metadata by PFN, returning nil if pfn is outside
// the zone. This is the zone-owned PFN -> Page table that Design Note 9
// calls for, so that lists elsewhere only need to hold PFNs/pointers
// without creating ownership cycles.
func (z *Zone) Page(pfn PFN) *Page {
	if !z.Contains(pfn) {
		return nil
	}
	return z.page(pfn)
}

// PageblockIndex returns the pageblock index containing pfn.
func (z *Zone) PageblockIndex(pfn PFN) int {
	return int((pfn - z.StartPFN) >> uint(z.PageblockOrder))
}

// PageblockStart returns the first PFN of the pageblock containing pfn.
func (z *Zone) PageblockStart(pfn PFN) PFN {
	mask := PFN(1)<<uint(z.PageblockOrder) - 1
	return pfn &^ mask
}

// PageblockAligned reports whether pfn is the first page of its block.
func (z *Zone) PageblockAligned(pfn PFN) bool {
	return z.PageblockStart(pfn) == pfn
}

// NumPageblocks returns the number of pageblocks in the zone.
func (z *Zone) NumPageblocks() int { return len(z.pageblocks) }

// Pageblock returns the pageblock descriptor at index idx, or nil if
// out of range.
func (z *Zone) Pageblock(idx int) *Pageblock {
	if idx < 0 || idx >= len(z.pageblocks) {
		return nil
	}
	return &z.pageblocks[idx]
}

// PageblockAt returns the pageblock descriptor containing pfn.
func (z *Zone) PageblockAt(pfn PFN) *Pageblock {
	return z.Pageblock(z.PageblockIndex(pfn))
}

// Lock acquires the zone free-area lock.
func (z *Zone) Lock() { z.mu.Lock() }

// Unlock releases the zone free-area lock.
func (z *Zone) Unlock() { z.mu.Unlock() }

// TryLock attempts to acquire the zone free-area lock without
// blocking, used by async-mode isolators (spec 5: "Async ... Uses
// try_lock on zone/LRU locks").
func (z *Zone) TryLock() bool { return z.mu.TryLock() }
