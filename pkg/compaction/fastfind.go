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

import "github.com/intel/compactcore/pkg/zone"

// fastSearchFailLimit bounds how many unsuccessful fast-search attempts
// a pass tolerates before giving up on the shortcut and falling back to
// the plain linear scanners for the remainder of the invocation.
const fastSearchFailLimit = 3

// FastFindFreepages implements the free scanner's fast path (spec
// 4.4): round-robin the movable free-area lists from cc.SearchOrder
// (capped at cc.Order-1) down to order 0 rather than walk the zone
// linearly, preferring a
// hit in the top quarter of the migrate/free gap and settling for one
// in the top half if nothing closer turns up. Returns the
// pageblock-start PFN to resume from and true on a hit; false means
// the caller should fall back to the linear free scanner.
func FastFindFreepages(cc *Control) (zone.PFN, bool) {
	if cc.Order == 0 || cc.IgnoreSkipHint {
		return 0, false
	}
	z := cc.Zone

	z.Lock()
	defer z.Unlock()

	if cc.MigratePFN >= cc.FreePFN {
		return 0, false
	}
	gap := cc.FreePFN - cc.MigratePFN
	quarter := cc.FreePFN - gap/4
	half := cc.FreePFN - gap/2

	startOrder := cc.SearchOrder
	if startOrder < 0 || startOrder > cc.Order-1 {
		startOrder = cc.Order - 1
	}

	var fallback zone.PFN
	haveFallback := false

	for order := startOrder; order >= 0; order-- {
		list := z.FreeAreas[order].List(zone.Movable)
		if list == nil {
			continue
		}
		pages := list.Pages()
		for i := len(pages) - 1; i >= 0; i-- {
			p := pages[i]
			if p.PFN < cc.MigratePFN || p.PFN >= cc.FreePFN {
				continue
			}
			pb := z.PageblockAt(p.PFN)
			if pb != nil && pb.Skip && !cc.IgnoreBlockSuitable {
				continue
			}
			block := z.PageblockStart(p.PFN)
			if p.PFN >= quarter {
				cc.SearchOrder = order
				return block, true
			}
			if !haveFallback && p.PFN >= half {
				fallback = block
				haveFallback = true
			}
		}
	}

	if haveFallback {
		cc.SearchOrder = startOrder
		return fallback, true
	}

	cc.SearchOrder = cc.Order - 1
	return 0, false
}

// FastFindMigrateBlock implements the migrate scanner's fast path
// (spec 4.4): rather than crawl every intervening pageblock linearly,
// look through the movable free lists for a page in the lower half of
// the migrate/free gap, on the theory that a
// pageblock near existing free space is also likely to hold easy
// migration candidates. A hit claims the pageblock so the next search
// picks a different one: its skip bit is set and its free page is
// pushed to the tail of the free list. Gives up (returns false) once
// cc.FastSearchFail reaches fastSearchFailLimit, after which the
// caller should rely on the ordinary linear migrate scanner for the
// rest of the pass.
func FastFindMigrateBlock(cc *Control) (zone.PFN, bool) {
	if cc.Order <= tunable.PageAllocCostlyOrder {
		return 0, false
	}
	if cc.FastSearchFail >= fastSearchFailLimit {
		return 0, false
	}
	z := cc.Zone

	z.Lock()
	defer z.Unlock()

	if cc.MigratePFN >= cc.FreePFN {
		cc.FastSearchFail++
		return 0, false
	}
	gap := cc.FreePFN - cc.MigratePFN
	lowerHalf := cc.MigratePFN + gap/2

	for order := zone.MaxOrder - 1; order >= 0; order-- {
		list := z.FreeAreas[order].List(zone.Movable)
		if list == nil {
			continue
		}
		for _, p := range list.Pages() {
			if p.PFN < cc.MigratePFN || p.PFN >= lowerHalf {
				continue
			}
			pb := z.PageblockAt(p.PFN)
			if pb == nil {
				continue
			}
			if pb.Skip && !cc.IgnoreBlockSuitable {
				continue
			}
			if pb.Migratetype == zone.Isolate {
				continue
			}
			pb.Skip = true
			list.MoveToBack(p)
			cc.FastSearchFail = 0
			return z.PageblockStart(p.PFN), true
		}
	}

	cc.FastSearchFail++
	return 0, false
}
