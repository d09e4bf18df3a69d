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

// FreeArea is the set of free buddy pages of one order, one list per
// migratetype. The order matters: the fast finders walk these lists in
// a specific direction to bias work toward promising pageblocks, so we
// keep each bucket an ordered PageList rather than an unordered set.
type FreeArea struct {
	Order int
	Lists [NumMigratetypes]*PageList
	Count int
}

func newFreeArea(order int) *FreeArea {
	fa := &FreeArea{Order: order}
	for mt := range fa.Lists {
		fa.Lists[mt] = NewPageList()
	}
	return fa
}

// List returns the free list for the given migratetype, treating CMA
// and Isolate as aliases of Movable for list-bucket purposes (as the
// kernel's MIGRATE_CMA does: CMA pages are allocatable as movable
// fallback but isolated pages never sit on any free list).
func (fa *FreeArea) List(mt Migratetype) *PageList {
	if int(mt) >= NumMigratetypes {
		return nil
	}
	return fa.Lists[mt]
}

// Add inserts a free page of this area's order into the given
// migratetype's list and marks it buddy.
func (fa *FreeArea) Add(mt Migratetype, p *Page) {
	l := fa.List(mt)
	if l == nil {
		return
	}
	p.Flags |= FlagBuddy
	p.Order = fa.Order
	l.PushBack(p)
	fa.Count++
}

// Remove takes a specific free page off its migratetype's list.
func (fa *FreeArea) Remove(mt Migratetype, p *Page) bool {
	l := fa.List(mt)
	if l == nil {
		return false
	}
	if l.Remove(p) {
		p.Flags &^= FlagBuddy
		fa.Count--
		return true
	}
	return false
}

// MaxOrder bounds the free-area array, mirroring MAX_ORDER.
const MaxOrder = 11
