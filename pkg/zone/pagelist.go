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

// PageList is the FIFO of pages a compaction pass owns locally (the
// cc.migratepages / cc.freepages lists of the spec). The kernel threads
// these through intrusive list_head fields in struct page; we keep
// pages identified by PFN outside of this list (see doc.go) and just
// hold a plain ordered slice of pointers here, one of the container
// shapes Design Note 9 calls out explicitly for a language without
// intrusive lists.
type PageList struct {
	pages []*Page
}

// NewPageList returns an empty page list.
func NewPageList() *PageList {
	return &PageList{}
}

// Len returns the number of pages currently on the list.
func (l *PageList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.pages)
}

// PushBack appends a page to the end of the list.
func (l *PageList) PushBack(p *Page) {
	p.linked = true
	l.pages = append(l.pages, p)
}

// Pages returns the list contents in order. The caller must not mutate
// the returned slice.
func (l *PageList) Pages() []*Page {
	return l.pages
}

// Remove removes p from the list if present, preserving order of the
// rest. Returns true if p was found and removed.
func (l *PageList) Remove(p *Page) bool {
	for i, q := range l.pages {
		if q == p {
			l.pages = append(l.pages[:i], l.pages[i+1:]...)
			p.linked = false
			return true
		}
	}
	return false
}

// MoveToBack moves p to the end of the list, used by the fast
// migrate-block finder to push a just-examined free page to the tail
// of its free list so that the next search picks a different block.
func (l *PageList) MoveToBack(p *Page) {
	if l.Remove(p) {
		l.PushBack(p)
	}
}

// PopFront removes and returns the first page, or nil if empty.
func (l *PageList) PopFront() *Page {
	if len(l.pages) == 0 {
		return nil
	}
	p := l.pages[0]
	l.pages = l.pages[1:]
	p.linked = false
	return p
}

// Drain removes and returns every page currently on the list.
func (l *PageList) Drain() []*Page {
	pages := l.pages
	l.pages = nil
	for _, p := range pages {
		p.linked = false
	}
	return pages
}

// Empty reports whether the list holds no pages.
func (l *PageList) Empty() bool { return l.Len() == 0 }
