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

// Package zone implements the physical-page memory model that the
// compaction engine in pkg/compaction operates on: pages, pageblocks,
// per-order/migratetype free-area lists, the skip-hint cache and the
// zone-level deferral counters. It deliberately stops short of being
// a real page allocator: allocation, watermark computation and zone
// enumeration are external collaborators (see pkg/compaction), not
// part of this package.
package zone
