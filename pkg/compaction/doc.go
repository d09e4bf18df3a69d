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

// Package compaction implements the dual-scanner memory compaction
// engine: two scanners sweeping a pkg/zone.Zone from opposite ends (a
// migration scanner isolating relocatable pages, a free scanner
// isolating destinations), the state machine that decides when to
// stop, the skip-hint-driven pruning of fruitless pageblocks, and the
// per-(zone,order) deferral counter that throttles retries.
//
// The page allocator, watermark computation, zone enumeration and the
// migration engine itself are external collaborators, represented
// here only as interfaces (see callbacks.go) that real callers supply.
package compaction
