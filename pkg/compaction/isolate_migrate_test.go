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

func TestIsolateMigratepagesBlockIsolatesLRUPage(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	p := z.Page(8)
	p.Flags |= zone.FlagLRU
	p.RefCount = 1

	cc := NewControl(z, 0, Async, zone.Movable, false)
	pfn := IsolateMigratepagesBlock(cc, 0, 16, IsolateAsyncMigrate)
	if pfn != 16 {
		t.Fatalf("reached pfn %d, want 16", pfn)
	}
	if cc.Migratepages.Len() != 1 {
		t.Fatalf("migratepages has %d entries, want 1", cc.Migratepages.Len())
	}
	if p.IsLRU() {
		t.Errorf("isolated page still carries FlagLRU")
	}
	if p.RefCount != 2 {
		t.Errorf("refcount = %d, want 2 (pinned by isolation)", p.RefCount)
	}
}

func TestIsolateMigratepagesBlockSkipsBuddyPages(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	z.FreeAreas[1].Add(zone.Movable, z.Page(0))

	cc := NewControl(z, 0, Async, zone.Movable, false)
	pfn := IsolateMigratepagesBlock(cc, 0, 16, IsolateAsyncMigrate)
	if pfn != 16 {
		t.Fatalf("reached pfn %d, want 16", pfn)
	}
	if cc.Migratepages.Len() != 0 {
		t.Fatalf("buddy pages should never be isolated, got %d", cc.Migratepages.Len())
	}
}

func TestIsolateMigratepagesBlockIsolatesNonLRUMovable(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	p := z.Page(4)
	p.Mapping.Kind = zone.MappingMovable

	cc := NewControl(z, 0, Async, zone.Movable, false)
	cc.MovableOwner = func(p *zone.Page) bool { return true }

	pfn := IsolateMigratepagesBlock(cc, 0, 16, IsolateAsyncMigrate)
	if pfn != 16 {
		t.Fatalf("reached pfn %d, want 16", pfn)
	}
	if cc.Migratepages.Len() != 1 {
		t.Fatalf("non-LRU movable page not isolated, got %d entries", cc.Migratepages.Len())
	}
	if !p.IsIsolated() {
		t.Errorf("isolated movable page missing FlagIsolated")
	}
}

func TestIsolateMigratepagesBlockSetsSkipOnEmptyBlock(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	// Every page in [0,16) is neither LRU nor movable: nothing isolates.
	cc := NewControl(z, 0, Async, zone.Movable, false)
	IsolateMigratepagesBlock(cc, 0, 16, IsolateAsyncMigrate)

	if !z.PageblockAt(0).Skip {
		t.Errorf("empty pageblock did not get its skip bit set")
	}
}

func TestIsolateMigratepagesBlockRespectsNoSetSkipHint(t *testing.T) {
	z := zone.New("test", 0, 64, 4)
	cc := NewControl(z, 0, Async, zone.Movable, false)
	cc.NoSetSkipHint = true
	IsolateMigratepagesBlock(cc, 0, 16, IsolateAsyncMigrate)

	if z.PageblockAt(0).Skip {
		t.Errorf("skip bit set despite NoSetSkipHint")
	}
}
