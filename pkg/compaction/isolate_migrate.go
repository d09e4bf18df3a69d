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

// IsolateMode refines which pages isolate_migratepages_block is
// willing to touch.
type IsolateMode uint32

const (
	// IsolateAsyncMigrate restricts isolation to pages async
	// compaction can handle without blocking.
	IsolateAsyncMigrate IsolateMode = 1 << iota
	// IsolateUnevictable additionally allows mlocked/unevictable pages.
	IsolateUnevictable
)

// IsolateMigratepagesBlock walks one pageblock [low, end), isolating
// movable LRU pages and non-LRU movable pages onto cc.Migratepages.
// Returns the first unscanned PFN (>= end on full completion), or 0 on
// a fatal abort.
func IsolateMigratepagesBlock(cc *Control, low, end zone.PFN, mode IsolateMode) zone.PFN {
	z := cc.Zone

	locked := false
	lock := func() bool {
		if cc.Mode == Async {
			if !z.LRUMutex.TryLock() {
				cc.Contended = true
				return false
			}
		} else {
			z.LRUMutex.Lock()
		}
		locked = true
		return true
	}
	unlock := func() {
		if locked {
			z.LRUMutex.Unlock()
			locked = false
		}
	}
	defer unlock()

	nIsolated := 0
	nFailed := 0
	sinceDrop := 0
	pfn := low

	for pfn < end {
		if sinceDrop >= tunable.ClusterMax {
			unlock()
			if cc.canceled() {
				return 0
			}
			if cc.Mode == Async && cc.Contended {
				return 0
			}
			if cc.Contended {
				return 0
			}
			sinceDrop = 0
		}

		if cc.TooManyIsolated != nil && cc.TooManyIsolated() {
			if cc.Mode == Async {
				return 0
			}
			// Sync modes are allowed to wait for the system-wide
			// isolated count to drop; we model that as a retry of the
			// same pfn rather than a real sleep.
			continue
		}

		p := z.Page(pfn)
		if p == nil {
			pfn++
			sinceDrop++
			continue
		}

		if p.IsBuddy() {
			order := p.Order
			if order <= 0 {
				order = 1
			}
			pfn += zone.PFN(1) << uint(order)
			sinceDrop++
			continue
		}

		if p.IsCompound() && !p.IsBuddy() {
			order := p.Order
			if order <= 0 {
				order = 1
			}
			pfn += zone.PFN(1) << uint(order)
			nFailed++
			sinceDrop++
			continue
		}

		if !p.IsLRU() && !p.IsMovable() {
			pfn++
			sinceDrop++
			continue
		}

		if !locked {
			if !lock() {
				return 0
			}
		}

		if p.IsMovable() {
			if p.IsIsolated() {
				pfn++
				sinceDrop++
				continue
			}
			if cc.MovableOwner != nil && cc.MovableOwner(p) {
				p.Flags |= zone.FlagIsolated
				cc.Migratepages.PushBack(p)
				nIsolated++
			} else {
				nFailed++
			}
			pfn++
			sinceDrop++
			continue
		}

		if !cc.UnevictableAllowed && p.Flags.Has(zone.FlagUnevictable) && mode&IsolateUnevictable == 0 {
			pfn++
			sinceDrop++
			continue
		}
		if cc.Mode == Async && p.Flags.Has(zone.FlagLocked) {
			pfn++
			sinceDrop++
			continue
		}
		if p.RefCount-1 > p.MapCount {
			pfn++
			sinceDrop++
			continue
		}

		if !p.IsLRU() {
			pfn++
			sinceDrop++
			continue
		}
		p.Flags &^= zone.FlagLRU
		p.RefCount++
		cc.Migratepages.PushBack(p)
		nIsolated++
		pfn++
		sinceDrop++
	}

	unlock()

	cc.rescanPageblock(low, nIsolated, nFailed)

	return pfn
}

// rescanPageblock implements the §4.3 rescan policy: a block that
// yielded nothing, or that has been rescanned back to back, gets its
// skip bit set so future passes bypass it.
func (cc *Control) rescanPageblock(low zone.PFN, isolated, failed int) {
	if cc.NoSetSkipHint {
		return
	}
	if isolated == 0 || (cc.Rescan && failed > 0) {
		cc.Zone.SetPageblockSkip(low)
	}
}
