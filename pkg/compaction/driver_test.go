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
	"testing"

	"github.com/intel/compactcore/pkg/zone"
)

// fakeAllocator is a fully scripted Allocator for driver tests; none of
// these concerns are implemented by pkg/compaction itself, so tests
// supply whatever answer the scenario calls for.
type fakeAllocator struct {
	watermarkOK  bool
	fragIndex    int
	fallbackOK   bool
	fallbackType zone.Migratetype
}

func (f *fakeAllocator) WatermarkOK(z *zone.Zone, order, classZoneIdx int, allocFlags uint32) bool {
	return f.watermarkOK
}
func (f *fakeAllocator) FragmentationIndex(z *zone.Zone, order int) int { return f.fragIndex }
func (f *fakeAllocator) FindSuitableFallback(z *zone.Zone, order int, mt zone.Migratetype) (zone.Migratetype, bool) {
	return f.fallbackType, f.fallbackOK
}

// noopDestinations and noopMigrator let CompactZone run its isolation
// loop without a real migration engine: every batch "migrates"
// trivially so the loop can reach its termination condition.
type noopDestinations struct{}

func (noopDestinations) AllocDestination(cc *Control, src *zone.Page) (*zone.Page, error) {
	return cc.Freepages.PopFront(), nil
}
func (noopDestinations) FreeDestination(cc *Control, page *zone.Page) {}

type noopMigrator struct{}

func (noopMigrator) MigratePages(cc *Control, pages *zone.PageList, dst Destinations) (int, error) {
	n := pages.Len()
	pages.Drain()
	return n, nil
}

func TestCompactionSuitableEmptyZone(t *testing.T) {
	z := zone.New("test", 0, 256, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	alloc := &fakeAllocator{watermarkOK: true}

	if res := CompactionSuitable(alloc, cc); res != Success {
		t.Fatalf("CompactionSuitable = %v, want Success", res)
	}
}

func TestCompactionSkippedWhenFragmentationLow(t *testing.T) {
	z := zone.New("test", 0, 256, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	alloc := &fakeAllocator{watermarkOK: false, fragIndex: 100}

	if res := CompactionSuitable(alloc, cc); res != notSuitableZone {
		t.Fatalf("CompactionSuitable = %v, want notSuitableZone", res)
	}
}

func TestCompactFinishedScannersMeetCompletes(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	cc.MigratePFN = 32
	cc.FreePFN = 32
	alloc := &fakeAllocator{watermarkOK: false, fragIndex: 900}

	res := CompactFinished(alloc, cc)
	if res != Complete {
		t.Fatalf("CompactFinished = %v, want Complete (cc.WholeZone is true)", res)
	}
}

// TestScannersCrossExactlyOnce is scenario S6: as the migrate scanner
// advances toward a fixed free scanner, ScannersMet must flip from
// false to true exactly once and never revert, matching compact_zone's
// assumption that the two cursors converge monotonically.
func TestScannersCrossExactlyOnce(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	cc.FreePFN = 40

	transitions := 0
	met := false
	for pfn := zone.PFN(0); pfn <= z.EndPFN; pfn++ {
		cc.MigratePFN = pfn
		now := cc.ScannersMet()
		if now && !met {
			transitions++
		}
		met = now
	}
	if transitions != 1 {
		t.Fatalf("ScannersMet flipped to true %d times, want exactly 1", transitions)
	}
}

func TestCompactFinishedContendedTakesPriority(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	cc.Contended = true
	alloc := &fakeAllocator{watermarkOK: true}

	if res := CompactFinished(alloc, cc); res != Contended {
		t.Fatalf("CompactFinished = %v, want Contended even though watermark is OK", res)
	}
}

func TestCompactZoneFullyFragmentedZoneCompacts(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	// Scatter LRU migration sources across the low half, free buddy
	// pages across the high half: a textbook fragmented-but-not-empty
	// zone that compaction should be able to consolidate.
	for pfn := zone.PFN(0); pfn < 16; pfn += 2 {
		p := z.Page(pfn)
		p.Flags |= zone.FlagLRU
		p.RefCount = 1
	}
	for pfn := zone.PFN(48); pfn < 64; pfn += 2 {
		z.FreeAreas[0].Add(zone.Movable, z.Page(pfn))
	}

	cc := NewControl(z, 0, Async, zone.Movable, true)
	alloc := &fakeAllocator{watermarkOK: false, fragIndex: 900, fallbackOK: false}

	res := CompactZone(cc, alloc, noopMigrator{}, noopDestinations{})
	// fallbackOK is false, so CompactFinished can never return Success;
	// cc.WholeZone is true, so the scanners-met branch must return
	// Complete, not PartialSkipped.
	if res != Complete {
		t.Fatalf("CompactZone = %v, want Complete", res)
	}
	if z.StatsSnapshot().Migrated == 0 {
		t.Errorf("expected at least one page to migrate in a fragmented zone")
	}
	// Containment invariant: no page left pinned on cc's local lists.
	if cc.Migratepages.Len() != 0 || cc.Freepages.Len() != 0 {
		t.Errorf("CompactZone leaked isolated pages: migrate=%d free=%d",
			cc.Migratepages.Len(), cc.Freepages.Len())
	}
}

func TestCompactZoneAsyncContentionAborts(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 0, Async, zone.Movable, true)
	cc.Contended = true
	alloc := &fakeAllocator{watermarkOK: false, fragIndex: 900}

	res := CompactZone(cc, alloc, noopMigrator{}, noopDestinations{})
	if res != Contended {
		t.Fatalf("CompactZone = %v, want Contended", res)
	}
	if cc.Migratepages.Len() != 0 || cc.Freepages.Len() != 0 {
		t.Errorf("contended abort leaked isolated pages")
	}
}

func TestCompactZoneSkipsWhenNotSuitable(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 2, Async, zone.Movable, true)
	alloc := &fakeAllocator{watermarkOK: false, fragIndex: 100}

	res := CompactZone(cc, alloc, noopMigrator{}, noopDestinations{})
	if res != Skipped {
		t.Fatalf("CompactZone = %v, want Skipped", res)
	}
}
