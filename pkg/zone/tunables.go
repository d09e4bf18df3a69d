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
	cfg "github.com/intel/compactcore/pkg/config"
)

// MaxDeferShift caps the exponential backoff applied to a zone's
// deferral counter (spec's COMPACT_MAX_DEFER_SHIFT), registered as a
// config tunable alongside the rest of the compaction thresholds.
var MaxDeferShift = 6

func init() {
	m := cfg.Register("zone", "per-zone compaction deferral bookkeeping")
	m.IntVar(&MaxDeferShift, "max-defer-shift", MaxDeferShift,
		"upper bound on a zone's exponential compaction-deferral backoff")
}
