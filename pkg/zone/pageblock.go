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

// Migratetype classifies a pageblock by how freely its pages may be
// relocated.
type Migratetype int

const (
	// Movable pageblocks hold pages compaction is free to relocate.
	Movable Migratetype = iota
	// Unmovable pageblocks hold kernel-pinned allocations.
	Unmovable
	// Reclaimable pageblocks hold pages reclaimable by writeback/drop.
	Reclaimable
	// CMA pageblocks are reserved for contiguous-memory allocations.
	CMA
	// Isolate pageblocks are temporarily excluded from allocation
	// (e.g. while CMA or memory hot-remove validates a range).
	Isolate

	// NumMigratetypes is the number of real migratetypes above,
	// excluding Isolate which is never a free-list bucket of its own.
	NumMigratetypes = int(Isolate)
)

func (mt Migratetype) String() string {
	switch mt {
	case Movable:
		return "movable"
	case Unmovable:
		return "unmovable"
	case Reclaimable:
		return "reclaimable"
	case CMA:
		return "cma"
	case Isolate:
		return "isolate"
	default:
		return "unknown"
	}
}

// DefaultPageblockOrder is log2 of the number of pages in one pageblock.
// The kernel default is 2^9 = 512 pages (huge-page-order aligned);
// we keep that as our default but it is a zone construction parameter,
// not a compile-time constant, so tests can use small zones.
const DefaultPageblockOrder = 9

// Pageblock is the unit of migratetype assignment and skip-hint
// granularity: a fixed power-of-two run of contiguous pages.
type Pageblock struct {
	Migratetype Migratetype
	Skip        bool
}
