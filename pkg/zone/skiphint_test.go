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

import "testing"

// fixedSampler reports LRU/buddy membership from pre-seeded sets of
// PFNs, standing in for a live allocator during the skip-bit round
// trip test (spec scenario S5).
type fixedSampler struct {
	lru, buddy map[PFN]bool
}

func (s fixedSampler) SampleLRU(pfn PFN) bool   { return s.lru[pfn] }
func (s fixedSampler) SampleBuddy(pfn PFN) bool { return s.buddy[pfn] }

func TestTestAndSetSkipClaimsOnce(t *testing.T) {
	z := New("test", 0, 4<<9, 9)
	block0 := PFN(0)

	if prior := z.TestAndSetSkip(block0); prior {
		t.Fatal("first claim of a clear skip bit must report the prior (clear) value")
	}
	if prior := z.TestAndSetSkip(block0); !prior {
		t.Fatal("second claim of an already-set skip bit must report it was already set")
	}
}

func TestTestAndSetSkipRequiresAlignment(t *testing.T) {
	z := New("test", 0, 4<<9, 9)
	if z.TestAndSetSkip(5) {
		t.Fatal("a non-pageblock-aligned PFN must report a clear prior value")
	}
	if z.Pageblock(0).Skip {
		t.Fatal("a non-pageblock-aligned PFN must never set the skip bit of its pageblock")
	}
}

func TestSkipBitRoundTrip(t *testing.T) {
	z := New("test", 0, 4<<9, 9)
	for i := range z.pageblocks {
		z.pageblocks[i].Skip = true
	}
	z.BlockskipFlush = true

	// block 1 has an LRU page, block 2 has a buddy page, blocks 0 and 3
	// have neither in their sampled positions.
	sampler := fixedSampler{
		lru:   map[PFN]bool{PFN(1 << 9): true},
		buddy: map[PFN]bool{PFN(2 << 9): true},
	}

	z.ResetIsolationSuitable(sampler)

	if z.Pageblock(0).Skip != true {
		t.Error("block 0 (neither LRU nor buddy) should remain skipped")
	}
	if z.Pageblock(1).Skip != false {
		t.Error("block 1 (has an LRU sample) should have its skip bit cleared")
	}
	if z.Pageblock(2).Skip != false {
		t.Error("block 2 (has a buddy sample) should have its skip bit cleared")
	}
	if z.Pageblock(3).Skip != true {
		t.Error("block 3 (neither LRU nor buddy) should remain skipped")
	}
	if z.BlockskipFlush {
		t.Error("BlockskipFlush should be cleared once the bitmap is reseeded")
	}
}

func TestCachedMigrateOnlyAdvances(t *testing.T) {
	z := New("test", 0, 4<<9, 9)
	z.SetCachedMigratePFN(ScanAsync, 2<<9)
	z.UpdateCachedMigrate(ScanAsync, 0) // pageblock 0 < cached block 2, must not move back
	if got := z.CachedMigratePFN(ScanAsync); got != 2<<9 {
		t.Fatalf("cached migrate pfn regressed to %d, want unchanged at %d", got, 2<<9)
	}
	z.UpdateCachedMigrate(ScanAsync, 3<<9)
	if got := z.CachedMigratePFN(ScanAsync); got != 4<<9 {
		t.Fatalf("cached migrate pfn = %d, want advanced to %d", got, 4<<9)
	}
}

func TestCachedFreeOnlyRetreats(t *testing.T) {
	z := New("test", 0, 4<<9, 9)
	z.SetCachedFreePFN(3 << 9)
	z.UpdatePageblockSkip(3 << 9) // same block, no change expected
	if got := z.CachedFreePFN(); got != 3<<9 {
		t.Fatalf("cached free pfn = %d, want unchanged at %d", got, 3<<9)
	}
	z.UpdatePageblockSkip(1 << 9)
	if got := z.CachedFreePFN(); got != 1<<9 {
		t.Fatalf("cached free pfn = %d, want retreated to %d", got, 1<<9)
	}
}
