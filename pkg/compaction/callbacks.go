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

// Destinations is supplied by the migration engine and called back
// into from the driver: alloc_destination pulls a page off cc's local
// free list, free_destination returns an unused one. CompactZone fills
// that list by isolation before it calls the migrator; the list is not
// refilled from inside AllocDestination, so an empty list leaves no
// destination to hand out. Modeled as an interface carrying a mutable
// reference to the Control, per Design Note 9, rather than two bare
// function pointers.
type Destinations interface {
	AllocDestination(cc *Control, src *zone.Page) (*zone.Page, error)
	FreeDestination(cc *Control, page *zone.Page)
}

// Migrator is the external migration engine: moving a page's contents
// and rewriting references is entirely out of scope for this package;
// we only need to be able to invoke it.
type Migrator interface {
	// MigratePages attempts to relocate every page on pages using dst
	// to find destinations, returning how many pages migrated and the
	// first error encountered (nil on full success).
	MigratePages(cc *Control, pages *zone.PageList, dst Destinations) (migrated int, err error)
}

// Allocator is the set of queries pkg/compaction needs from the page
// allocator: watermark checks, the fragmentation index, and fallback
// migratetype resolution. All are out of scope for this package and
// supplied by the caller.
type Allocator interface {
	// WatermarkOK reports whether zone z satisfies watermark at order,
	// for the given class zone index and allocation flags.
	WatermarkOK(z *zone.Zone, order int, classZoneIdx int, allocFlags uint32) bool
	// FragmentationIndex returns a value in [-1000, 1000]: negative
	// means enough memory exists, 0 means low memory rather than
	// fragmentation, 1000 means pure fragmentation.
	FragmentationIndex(z *zone.Zone, order int) int
	// FindSuitableFallback looks for a free page of a fallback
	// migratetype compatible with mt at the given order, returning the
	// fallback type found, or ok=false if none exists.
	FindSuitableFallback(z *zone.Zone, order int, mt zone.Migratetype) (fallback zone.Migratetype, ok bool)
}
