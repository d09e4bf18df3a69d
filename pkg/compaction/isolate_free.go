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

// FreeScanStride returns the free scanner's per-step PFN advance when
// skipping a non-buddy page: one PFN at a time for strict scans (CMA
// range validation, where every hole matters) or sync-mode compaction,
// up to tunable.ClusterMax at a time for ordinary async compaction,
// trading scan precision for fewer zone-lock acquisitions (spec 4.2).
func FreeScanStride(cc *Control, strict bool) int {
	if strict || cc.Mode != Async {
		return 1
	}
	return tunable.ClusterMax
}

// IsolateFreepagesBlock walks [start, end) inside one pageblock in
// stride-sized steps over non-buddy pages, removing buddy free pages
// from their free-area lists, splitting them to order-0 units, and
// appending those units to freelist. strict=true (CMA range
// validation) aborts and returns 0 on the first non-buddy page;
// strict=false (ordinary compaction) accumulates whatever it can and
// tolerates holes.
func IsolateFreepagesBlock(cc *Control, start, end zone.PFN, freelist *zone.PageList, stride int, strict bool) int {
	z := cc.Zone

	locked := false
	lock := func() bool {
		if cc.Mode == Async {
			if !z.TryLock() {
				cc.Contended = true
				return false
			}
		} else {
			z.Lock()
		}
		locked = true
		return true
	}
	unlock := func() {
		if locked {
			z.Unlock()
			locked = false
		}
	}
	defer unlock()

	if !lock() {
		return 0
	}

	if stride < 1 {
		stride = 1
	}

	nIsolated := 0
	sinceDrop := 0

	for cursor := start; cursor < end; {
		if sinceDrop >= tunable.ClusterMax {
			unlock()
			if cc.canceled() || cc.Contended {
				return nIsolated
			}
			if !lock() {
				return nIsolated
			}
			sinceDrop = 0
		}

		p := z.Page(cursor)
		if p == nil {
			cursor += zone.PFN(stride)
			sinceDrop++
			continue
		}

		if !p.IsBuddy() {
			if strict {
				return 0
			}
			cursor += zone.PFN(stride)
			sinceDrop++
			continue
		}

		pb := z.PageblockAt(cursor)
		mt := zone.Movable
		if pb != nil {
			mt = pb.Migratetype
		}
		order := p.Order
		if !z.FreeAreas[order].Remove(mt, p) {
			// Lost the race re-verifying PageBuddy under lock; treat
			// as a transient fault, not corruption, and move on.
			cursor++
			sinceDrop++
			continue
		}

		base := p.PFN
		count := zone.PFN(1) << uint(order)
		for i := zone.PFN(0); i < count; i++ {
			sp := z.Page(base + i)
			if sp == nil {
				continue
			}
			sp.Order = 0
			sp.Flags |= zone.FlagBuddy
			freelist.PushBack(sp)
			nIsolated++
		}
		cursor = base + count
		sinceDrop++
	}

	return nIsolated
}

// IsolateFreepagesRange isolates free pages across possibly many
// pageblocks in [start, end), one pageblock at a time, and is also the
// primitive CMA range validation reuses with strict=true.
func IsolateFreepagesRange(cc *Control, start, end zone.PFN, strict bool) (*zone.PageList, zone.PFN) {
	z := cc.Zone
	out := zone.NewPageList()

	cursor := start
	for cursor < end {
		blockEnd := z.PageblockStart(cursor) + (zone.PFN(1) << uint(z.PageblockOrder))
		if blockEnd > end {
			blockEnd = end
		}
		n := IsolateFreepagesBlock(cc, cursor, blockEnd, out, FreeScanStride(cc, strict), strict)
		if strict && n == 0 && cursor < blockEnd {
			return out, cursor
		}
		cursor = blockEnd
		if cc.canceled() || cc.Contended {
			break
		}
	}
	return out, cursor
}
