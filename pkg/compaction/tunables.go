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
	cfg "github.com/intel/compactcore/pkg/config"
)

// tunables holds the package's runtime-adjustable thresholds,
// following the same config.Module pattern pkg/compactd/config.go uses
// for the daemon's own options.
type tunables struct {
	// ExtfragThreshold is the fragmentation-index cutoff above which a
	// zone is considered worth compacting (spec's extfrag_threshold).
	ExtfragThreshold int
	// UnevictableAllowed seeds Control.UnevictableAllowed for every new
	// invocation, letting the migrate isolator take mlocked pages
	// (spec's compact_unevictable_allowed). Off by default.
	UnevictableAllowed bool
	// ClusterMax bounds how many pages isolation work processes before
	// dropping locks to yield (spec's COMPACT_CLUSTER_MAX).
	ClusterMax int
	// PageAllocCostlyOrder gates the migrate-scanner fast path: it only
	// runs for requests above this order (spec's PAGE_ALLOC_COSTLY_ORDER).
	PageAllocCostlyOrder int
}

var tunable = &tunables{
	ExtfragThreshold:     500,
	UnevictableAllowed:   false,
	ClusterMax:           32,
	PageAllocCostlyOrder: 3,
}

func init() {
	m := cfg.Register("compaction", "memory compaction thresholds")
	m.IntVar(&tunable.ExtfragThreshold, "extfrag-threshold", tunable.ExtfragThreshold,
		"fragmentation index above which a zone is considered worth compacting")
	m.BoolVar(&tunable.UnevictableAllowed, "unevictable-allowed", tunable.UnevictableAllowed,
		"let the migrate isolator take mlocked (unevictable) pages")
	m.IntVar(&tunable.ClusterMax, "cluster-max", tunable.ClusterMax,
		"pages processed per lock hold before an isolator drops its lock to yield")
	m.IntVar(&tunable.PageAllocCostlyOrder, "page-alloc-costly-order", tunable.PageAllocCostlyOrder,
		"allocation order at or below which the migrate scanner's fast-find path is disabled")
}
