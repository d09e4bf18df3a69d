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

	"github.com/intel/compactcore/pkg/compaction"
	"github.com/intel/compactcore/pkg/zone"
)

// The real page allocator and migration engine are out of scope: no
// migration mechanics, no allocator internals. SimpleAllocator,
// SimpleMigrator and FreeListDestinations are the
// stand-ins cmd/compactd wires in when it has no host allocator to
// delegate to, e.g. running against a fixture loaded for offline
// analysis. They are deliberately simple heuristics, not a kernel
// allocator model.

// SimpleAllocator answers watermark and fragmentation queries directly
// off a zone's free-area counts, with no notion of per-zone watermark
// reservations.
type SimpleAllocator struct {
	// MinFree is the number of free pages (at any order) a zone must
	// keep for WatermarkOK to report satisfied.
	MinFree int
}

func (a *SimpleAllocator) freeCount(z *zone.Zone) int {
	z.Lock()
	defer z.Unlock()
	total := 0
	for order := 0; order < zone.MaxOrder; order++ {
		fa := z.FreeAreas[order]
		if fa == nil {
			continue
		}
		for mt := 0; mt < zone.NumMigratetypes; mt++ {
			if l := fa.List(zone.Migratetype(mt)); l != nil {
				total += l.Len() << uint(order)
			}
		}
	}
	return total
}

func (a *SimpleAllocator) freeCountAtOrder(z *zone.Zone, order int) int {
	z.Lock()
	defer z.Unlock()
	total := 0
	for o := order; o < zone.MaxOrder; o++ {
		fa := z.FreeAreas[o]
		if fa == nil {
			continue
		}
		for mt := 0; mt < zone.NumMigratetypes; mt++ {
			if l := fa.List(zone.Migratetype(mt)); l != nil {
				total += l.Len()
			}
		}
	}
	return total
}

// WatermarkOK reports whether z has at least MinFree free pages.
func (a *SimpleAllocator) WatermarkOK(z *zone.Zone, order, classZoneIdx int, allocFlags uint32) bool {
	return a.freeCount(z) >= a.MinFree
}

// FragmentationIndex returns the kernel's external fragmentation index
// in [-1000, 1000]: -1000 when order-sized free blocks already exist,
// 0 when the zone is simply out of memory, and a value approaching
// 1000 as total free memory grows scarcer relative to blocks of the
// requested order specifically (i.e. fragmentation, not exhaustion).
func (a *SimpleAllocator) FragmentationIndex(z *zone.Zone, order int) int {
	if a.freeCountAtOrder(z, order) > 0 {
		return -1000
	}
	total := a.freeCount(z)
	if total == 0 {
		return 0
	}
	need := 1 << uint(order)
	index := 1000 - (1000 * total / (need * 4))
	if index < 0 {
		index = 0
	}
	if index > 1000 {
		index = 1000
	}
	return index
}

// FindSuitableFallback offers Movable as the fallback for every
// migratetype except Movable itself, for which it reports no fallback
// (ok=false). SimpleAllocator keeps no per-migratetype free-area
// accounting beyond what pkg/zone already tracks.
func (a *SimpleAllocator) FindSuitableFallback(z *zone.Zone, order int, mt zone.Migratetype) (zone.Migratetype, bool) {
	if mt == zone.Movable {
		return zone.Movable, false
	}
	return zone.Movable, true
}

// FreeListDestinations hands out destination pages straight from a
// Control's already-isolated free list, populated by the free scanner
// via IsolateFreepagesBlock before the migrator ever runs (spec 4.4).
type FreeListDestinations struct{}

// AllocDestination pops the next isolated free page.
func (FreeListDestinations) AllocDestination(cc *compaction.Control, src *zone.Page) (*zone.Page, error) {
	p := cc.Freepages.PopFront()
	if p == nil {
		return nil, fmt.Errorf("compactd: no isolated free page available for destination")
	}
	return p, nil
}

// FreeDestination puts an unused destination page back on the list.
func (FreeListDestinations) FreeDestination(cc *compaction.Control, page *zone.Page) {
	cc.Freepages.PushBack(page)
}

// SimpleMigrator "migrates" a page by swapping its content markers
// onto a destination page and releasing the source back to the zone's
// order-0 free list. Copying real page content and rewriting page
// table entries is out of scope; this only moves
// enough bookkeeping for the rest of the pipeline (stats, skip hints,
// deferral) to observe genuine progress.
type SimpleMigrator struct{}

// MigratePages drains pages, relocating each onto a destination
// obtained from dst.
func (SimpleMigrator) MigratePages(cc *compaction.Control, pages *zone.PageList, dst compaction.Destinations) (int, error) {
	migrated := 0
	for {
		src := pages.PopFront()
		if src == nil {
			break
		}

		d, err := dst.AllocDestination(cc, src)
		if err != nil {
			return migrated, err
		}

		d.Flags = src.Flags &^ zone.FlagBuddy
		d.Mapping = src.Mapping
		d.RefCount = src.RefCount

		src.Flags = 0
		src.Mapping = zone.Mapping{}
		src.RefCount = 0

		cc.Zone.Lock()
		cc.Zone.FreeAreas[0].Add(zone.Movable, src)
		cc.Zone.Unlock()

		migrated++
	}
	return migrated, nil
}
