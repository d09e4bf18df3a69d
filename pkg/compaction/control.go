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
	"fmt"

	"github.com/intel/compactcore/pkg/zone"
)

// Mode is the migration mode a compaction pass runs under. It is
// threaded explicitly through every call that might block, rather than
// modeled with async/await, per Design Note 9.
type Mode int

const (
	// Async compaction must never block: lock contention or a resched
	// request aborts the pass immediately.
	Async Mode = iota
	// SyncLight may schedule and briefly wait on a page lock, but will
	// not wait on writeback.
	SyncLight
	// Sync may wait on writeback; reserved for manual/offline triggers.
	Sync
)

func (m Mode) String() string {
	switch m {
	case Async:
		return "async"
	case SyncLight:
		return "sync-light"
	case Sync:
		return "sync"
	default:
		return "unknown"
	}
}

// ScanClass maps a mode onto the zone's two cached-migrate-PFN slots.
func (m Mode) ScanClass() zone.ScanClass {
	if m == Async {
		return zone.ScanAsync
	}
	return zone.ScanSync
}

// Priority sets how much effort try_to_compact_pages should spend. A
// lower numeric value means more effort, matching the kernel's
// ordering: SyncFull (most effort) orders below SyncLight (the
// default) which orders below Async (the initial, cheapest attempt).
type Priority int

const (
	// PrioritySyncFull is the maximum-effort priority.
	PrioritySyncFull Priority = iota
	// PrioritySyncLight is the default priority for direct compaction.
	PrioritySyncLight
	// PriorityAsync is the cheapest, initial priority.
	PriorityAsync

	// MinPriority bypasses the deferral check entirely: a caller that
	// has escalated all the way down is making a final, undeferred
	// attempt.
	MinPriority = PrioritySyncFull
)

// Mode returns the migration mode associated with a priority level.
func (p Priority) Mode() Mode {
	switch p {
	case PrioritySyncFull:
		return Sync
	case PrioritySyncLight:
		return SyncLight
	default:
		return Async
	}
}

// Result is the outcome of a single compact_zone (or, aggregated, a
// try_to_compact_pages) invocation.
type Result int

const (
	// Skipped means compaction_suitable determined the zone is not
	// worth touching right now.
	Skipped Result = iota
	// Deferred means the zone's deferral counter suppressed this
	// attempt.
	Deferred
	// Continue means the pass made progress but neither completed nor
	// produced the requested order; callers should retry.
	Continue
	// Complete means the two scanners met having covered the whole
	// zone without producing the requested order.
	Complete
	// PartialSkipped means the two scanners met, but skip hints meant
	// less than the whole zone was actually scanned.
	PartialSkipped
	// Contended means the pass aborted early due to lock contention or
	// a pending fatal signal.
	Contended
	// Success means a suitable free page became available.
	Success

	// notSuitableZone and noSuitablePage are internal, tracepoint-only
	// values the driver never returns to a caller; they exist purely
	// for the log messages that explain a Skipped/Continue result.
	notSuitableZone
	noSuitablePage
)

func (r Result) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Deferred:
		return "deferred"
	case Continue:
		return "continue"
	case Complete:
		return "complete"
	case PartialSkipped:
		return "partial-skipped"
	case Contended:
		return "contended"
	case Success:
		return "success"
	case notSuitableZone:
		return "not-suitable-zone"
	case noSuitablePage:
		return "no-suitable-page"
	default:
		return "unknown"
	}
}

// Control is the per-invocation working state of one compact_zone
// call (spec's CompactControl).
type Control struct {
	Zone *zone.Zone

	Order       int
	SearchOrder int

	GFPMask      uint32
	Migratetype  zone.Migratetype
	Mode         Mode
	AllocFlags   uint32
	ClassZoneIdx int

	Direct              bool
	WholeZone           bool
	IgnoreSkipHint      bool
	IgnoreBlockSuitable bool
	NoSetSkipHint       bool

	MigratePFN   zone.PFN
	FreePFN      zone.PFN
	FastStartPFN zone.PFN

	NrMigratepages int
	NrFreepages    int

	TotalMigrateScanned int
	TotalFreeScanned    int

	Migratepages *zone.PageList
	Freepages    *zone.PageList

	Contended      bool
	Rescan         bool
	FastSearchFail int

	// UnevictableAllowed lets the migrate isolator take mlocked pages;
	// off by default, matching CMA/alloc_contig callers rather than
	// ordinary compaction.
	UnevictableAllowed bool

	// TooManyIsolated is an optional throttle hook: when non-nil and it
	// reports true, the migrate isolator backs off rather than grow the
	// system-wide isolated count without bound. Left nil by callers that
	// have no such global counter to consult.
	TooManyIsolated func() bool

	// MovableOwner classifies a non-LRU PageMovable page as isolatable,
	// standing in for the kernel's page->mapping->a_ops->isolate_page
	// callback (spec §4.3). Left nil when the caller never isolates
	// non-LRU movable pages.
	MovableOwner func(p *zone.Page) bool

	// Cancel is closed when a fatal signal is pending on the caller's
	// behalf; every lock-release checkpoint selects on it. A nil
	// channel simply never fires, matching a caller with no signal to
	// honor.
	Cancel <-chan struct{}
}

// canceled reports whether a fatal-signal cancellation is pending.
func (cc *Control) canceled() bool {
	if cc.Cancel == nil {
		return false
	}
	select {
	case <-cc.Cancel:
		return true
	default:
		return false
	}
}

// NewControl builds the working state for one compaction pass against
// z, seeding cursors from the zone's cached restart PFNs unless
// wholeZone requests a full sweep from the zone ends.
func NewControl(z *zone.Zone, order int, mode Mode, migratetype zone.Migratetype, wholeZone bool) *Control {
	cc := &Control{
		Zone:               z,
		Order:              order,
		SearchOrder:        order,
		Mode:               mode,
		Migratetype:        migratetype,
		WholeZone:          wholeZone,
		UnevictableAllowed: tunable.UnevictableAllowed,
		Migratepages:       zone.NewPageList(),
		Freepages:          zone.NewPageList(),
	}
	if wholeZone {
		cc.MigratePFN = z.StartPFN
		cc.FreePFN = z.EndPFN
	} else {
		cc.MigratePFN = z.CachedMigratePFN(mode.ScanClass())
		cc.FreePFN = z.CachedFreePFN()
	}
	cc.FastStartPFN = cc.MigratePFN
	return cc
}

func (cc *Control) String() string {
	return fmt.Sprintf("compact{zone:%s order:%d mode:%s migrate:%d free:%d}",
		cc.Zone.Name, cc.Order, cc.Mode, cc.MigratePFN, cc.FreePFN)
}

// ScannersMet reports whether the migration and free scanners have
// crossed: pageblock(MigratePFN) >= pageblock(FreePFN-1), FreePFN being
// the exclusive upper end of the range the free scanner has left.
func (cc *Control) ScannersMet() bool {
	z := cc.Zone
	if cc.FreePFN <= z.StartPFN || cc.MigratePFN >= z.EndPFN {
		return true
	}
	return z.PageblockIndex(cc.MigratePFN) >= z.PageblockIndex(cc.FreePFN-1)
}

// releaseFreepages puts every page still on the local free list back
// onto the zone's free-area buckets, and clears the local counters.
// Called on every exit path so Control never leaks isolated pages.
func (cc *Control) releaseFreepages() {
	z := cc.Zone
	pages := cc.Freepages.Drain()
	if len(pages) == 0 {
		cc.NrFreepages = 0
		return
	}
	z.Lock()
	for _, p := range pages {
		z.FreeAreas[0].Add(cc.Migratetype, p)
	}
	z.Unlock()
	cc.NrFreepages = 0
}

// putbackMigratepages returns every page still on the local migrate
// list to its LRU list (or clears PageIsolated for non-LRU movable
// pages), undoing isolate_migratepages_block on the exit paths that
// did not hand the pages to the migration engine.
func (cc *Control) putbackMigratepages() {
	pages := cc.Migratepages.Drain()
	for _, p := range pages {
		if p.IsMovable() {
			p.Flags &^= zone.FlagIsolated
			continue
		}
		p.Flags |= zone.FlagLRU
	}
	cc.NrMigratepages = 0
}

// Release drains both local lists, guaranteeing the containment
// invariant (spec testable property 1) on every exit path.
func (cc *Control) Release() {
	cc.releaseFreepages()
	cc.putbackMigratepages()
}
