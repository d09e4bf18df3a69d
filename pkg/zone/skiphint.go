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
	"github.com/intel/compactcore/pkg/pbset"
)

// Skip hints are best-effort: callers may freely race on them (spec
// invariant "skip bits are hints only"). We still serialize writes
// through the free-area lock since pageblocks live in a plain slice;
// that only protects the slice itself, not the correctness of the
// scan, which must tolerate stale reads by design.

// TestAndSetSkip claims exclusive scan rights over the pageblock
// containing pfn: if the skip bit is currently clear, it is set and
// the (stale) prior value is returned. Only meaningful when pfn is
// pageblock-aligned, mirroring the kernel's check.
func (z *Zone) TestAndSetSkip(pfn PFN) bool {
	if !z.PageblockAligned(pfn) {
		return false
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	pb := z.pageblockAtLocked(pfn)
	if pb == nil {
		return false
	}
	prior := pb.Skip
	pb.Skip = true
	return prior
}

func (z *Zone) pageblockAtLocked(pfn PFN) *Pageblock {
	return z.Pageblock(z.PageblockIndex(pfn))
}

// UpdateCachedMigrate bumps the cached migrate-scanner restart PFN for
// class forward to the pageblock following pfn, if that is further
// along than what is already cached (cached PFNs only ever advance).
func (z *Zone) UpdateCachedMigrate(class ScanClass, pfn PFN) {
	next := z.PageblockStart(pfn) + (PFN(1) << uint(z.PageblockOrder))
	z.mu.Lock()
	defer z.mu.Unlock()
	if next > z.cachedMigratePFN[class] {
		z.cachedMigratePFN[class] = next
	}
}

// CachedMigratePFN returns the cached migrate-scanner restart PFN for
// the given class.
func (z *Zone) CachedMigratePFN(class ScanClass) PFN {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.cachedMigratePFN[class]
}

// SetCachedMigratePFN seeds the cached migrate-scanner restart PFN for
// the given class (used when starting a whole-zone pass).
func (z *Zone) SetCachedMigratePFN(class ScanClass, pfn PFN) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.cachedMigratePFN[class] = pfn
}

// CachedFreePFN returns the cached free-scanner restart PFN.
func (z *Zone) CachedFreePFN() PFN {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.cachedFreePFN
}

// SetCachedFreePFN seeds the cached free-scanner restart PFN.
func (z *Zone) SetCachedFreePFN(pfn PFN) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.cachedFreePFN = pfn
}

// SetPageblockSkip sets the skip bit for the pageblock containing pfn,
// used by the migrate scanner when a block yields nothing (it does not
// touch either cached PFN; only the free scanner's variant below does).
func (z *Zone) SetPageblockSkip(pfn PFN) {
	z.mu.Lock()
	defer z.mu.Unlock()
	pb := z.pageblockAtLocked(pfn)
	if pb != nil {
		pb.Skip = true
	}
}

// UpdatePageblockSkip sets the skip bit for the pageblock containing
// pfn and, since this is called from the free scanner's side, pulls
// the cached free-scanner PFN backward to the start of that block (the
// cached free PFN only ever retreats).
func (z *Zone) UpdatePageblockSkip(pfn PFN) {
	z.mu.Lock()
	defer z.mu.Unlock()
	pb := z.pageblockAtLocked(pfn)
	if pb != nil {
		pb.Skip = true
	}
	start := z.PageblockStart(pfn)
	if start < z.cachedFreePFN {
		z.cachedFreePFN = start
	}
}

// SkippedPageblocks returns the indices of every pageblock currently
// carrying a set skip bit, folded into a short set the way a debug
// endpoint would want to print it (e.g. "0-3,7,9-12"). The result is a
// snapshot: by the time a caller prints it, scanners may already have
// cleared or set further bits.
func (z *Zone) SkippedPageblocks() pbset.Set {
	z.mu.Lock()
	defer z.mu.Unlock()
	var idx []int
	for i := range z.pageblocks {
		if z.pageblocks[i].Skip {
			idx = append(idx, i)
		}
	}
	return pbset.New(idx...)
}

// InitPFNs returns the PFNs snapshotted the last time the skip bitmap
// was reset, used to decide whether a pass has covered the whole zone.
func (z *Zone) InitPFNs() (migrate, free PFN) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.initMigratePFN, z.initFreePFN
}

// Sampler lets ResetIsolationSuitable ask an external collaborator
// (the page classifier normally baked into the allocator) whether a
// sampled page is a good migration source (LRU) or target (buddy),
// without pkg/zone needing to know about LRU/reclaim internals.
type Sampler interface {
	// SampleLRU reports whether the page at pfn looks like a usable
	// migration source.
	SampleLRU(pfn PFN) bool
	// SampleBuddy reports whether the page at pfn looks like a usable
	// migration target.
	SampleBuddy(pfn PFN) bool
}

// defaultSampler samples directly off the zone's own page table, which
// is all a self-contained test or simulation needs; a real allocator
// would supply its own Sampler wired to live page state.
type defaultSampler struct{ z *Zone }

func (s defaultSampler) SampleLRU(pfn PFN) bool {
	p := s.z.Page(pfn)
	return p != nil && p.IsLRU()
}

func (s defaultSampler) SampleBuddy(pfn PFN) bool {
	p := s.z.Page(pfn)
	return p != nil && p.IsBuddy()
}

const skipResetStride = 16

// ResetIsolationSuitable flushes the skip bitmap, then lazily reseeds
// it: one pass over the zone sampling one page every 16 PFNs (spec
// 4.1). Any pageblock whose sample contains an LRU page has its skip
// bit cleared as a migration source; any whose sample contains a buddy
// page has its skip bit cleared as a free-scan target. The cached
// restart PFNs are updated to the lowest such source / highest such
// target pageblock found.
func (z *Zone) ResetIsolationSuitable(sampler Sampler) {
	if sampler == nil {
		sampler = defaultSampler{z}
	}

	z.mu.Lock()
	for i := range z.pageblocks {
		z.pageblocks[i].Skip = true
	}
	z.initMigratePFN = z.StartPFN
	z.initFreePFN = z.EndPFN
	z.mu.Unlock()

	lowestSource := PFN(0)
	haveSource := false
	highestTarget := PFN(0)
	haveTarget := false

	for pfn := z.StartPFN; pfn < z.EndPFN; pfn += skipResetStride {
		goodSource := sampler.SampleLRU(pfn)
		goodTarget := sampler.SampleBuddy(pfn)
		if !goodSource && !goodTarget {
			continue
		}
		block := z.PageblockStart(pfn)
		z.mu.Lock()
		pb := z.pageblockAtLocked(block)
		if pb != nil {
			pb.Skip = false
		}
		z.mu.Unlock()
		if goodSource && (!haveSource || block < lowestSource) {
			lowestSource, haveSource = block, true
		}
		if goodTarget && (!haveTarget || block > highestTarget) {
			highestTarget, haveTarget = block, true
		}
	}

	z.mu.Lock()
	if haveSource {
		z.cachedMigratePFN[ScanAsync] = lowestSource
		z.cachedMigratePFN[ScanSync] = lowestSource
	}
	if haveTarget {
		z.cachedFreePFN = highestTarget + (PFN(1) << uint(z.PageblockOrder))
		if z.cachedFreePFN > z.EndPFN {
			z.cachedFreePFN = z.EndPFN
		}
	}
	z.BlockskipFlush = false
	z.mu.Unlock()

	log.Debug("zone %s: skip bitmap reseeded (source=%v@%d target=%v@%d)",
		z.Name, haveSource, lowestSource, haveTarget, highestTarget)
}
