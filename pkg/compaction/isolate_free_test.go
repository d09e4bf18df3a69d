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

func TestIsolateFreepagesBlockSplitsToOrderZero(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	head := z.Page(16)
	z.FreeAreas[2].Add(zone.Movable, head)

	cc := NewControl(z, 0, Async, zone.Movable, false)
	freelist := zone.NewPageList()

	n := IsolateFreepagesBlock(cc, 0, 64, freelist, 1, false)
	if n != 4 {
		t.Fatalf("isolated = %d, want 4", n)
	}
	if freelist.Len() != 4 {
		t.Fatalf("freelist has %d pages, want 4", freelist.Len())
	}
	for _, p := range freelist.Pages() {
		if p.Order != 0 {
			t.Errorf("page %d order = %d, want 0", p.PFN, p.Order)
		}
		if !p.IsBuddy() {
			t.Errorf("page %d lost its buddy flag", p.PFN)
		}
	}
	if z.FreeAreas[2].Count != 0 {
		t.Errorf("order-2 free area still has %d entries", z.FreeAreas[2].Count)
	}
}

func TestIsolateFreepagesBlockStrictAbortsOnHole(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	// No buddy pages anywhere: every page is a "hole" for strict mode.
	cc := NewControl(z, 0, Async, zone.Movable, false)
	freelist := zone.NewPageList()

	n := IsolateFreepagesBlock(cc, 0, 16, freelist, 1, true)
	if n != 0 {
		t.Fatalf("strict isolate over a hole returned %d, want 0", n)
	}
	if freelist.Len() != 0 {
		t.Fatalf("freelist should stay empty on a strict abort, got %d", freelist.Len())
	}
}

func TestIsolateFreepagesBlockTolerantSkipsHoles(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	z.FreeAreas[0].Add(zone.Movable, z.Page(5))
	z.FreeAreas[0].Add(zone.Movable, z.Page(9))

	cc := NewControl(z, 0, Async, zone.Movable, false)
	freelist := zone.NewPageList()

	n := IsolateFreepagesBlock(cc, 0, 16, freelist, 1, false)
	if n != 2 {
		t.Fatalf("isolated = %d, want 2", n)
	}
}

func TestIsolateFreepagesRangeCrossesPageblocks(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	z.FreeAreas[0].Add(zone.Movable, z.Page(2))
	z.FreeAreas[0].Add(zone.Movable, z.Page(20))

	// Sync mode keeps the free scanner's stride at 1 (FreeScanStride),
	// so this test can assert on exact page-by-page discovery rather
	// than async's coarser, lock-traffic-saving stride.
	cc := NewControl(z, 0, Sync, zone.Movable, false)
	out, cursor := IsolateFreepagesRange(cc, 0, 32, false)
	if out.Len() != 2 {
		t.Fatalf("range isolate collected %d pages, want 2", out.Len())
	}
	if cursor != 32 {
		t.Fatalf("cursor = %d, want 32", cursor)
	}
}
