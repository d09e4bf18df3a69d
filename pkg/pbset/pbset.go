// Copyright 2019 Intel Corporation. All Rights Reserved.
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

// Package pbset renders sets of pageblock indices the way the rest of
// this corpus renders CPU sets: as a short, run-length folded string
// such as "0-3,7,9-12". It is a diagnostics/dump concern only — the
// skip-hint bitmap itself is a plain bitset and never goes through
// this package on the hot path.
package pbset

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// Set is an alias for k8s.io/utils/cpuset.CPUSet, reused here to hold
// pageblock indices instead of CPU numbers.
type Set = cpuset.CPUSet

var (
	// New builds a Set from a list of pageblock indices.
	New = cpuset.New
	// Parse parses a Short-formatted pageblock set, e.g. "0-3,7".
	Parse = cpuset.Parse
)

// MustParse panics if s does not parse as a pageblock set.
func MustParse(s string) Set {
	set, err := cpuset.Parse(s)
	if err != nil {
		panic(fmt.Errorf("failed to parse pageblock set %q: %w", s, err))
	}
	return set
}

// Short prints set the way ShortCPUSet prints a CPU set: runs of
// consecutive or evenly-strided pageblock indices are folded, e.g.
// "0-3,7,9-12" instead of "0,1,2,3,7,9,10,11,12".
func Short(set Set) string {
	str, sep := "", ""

	beg, end, step := -1, -1, -1
	for _, pb := range strings.Split(set.String(), ",") {
		if pb == "" {
			continue
		}
		if strings.Contains(pb, "-") {
			if beg >= 0 {
				str += sep + mkRange(beg, end, step)
				sep = ","
				beg, end, step = -1, -1, -1
			}
			str += sep + pb
			sep = ","
			continue
		}
		i, err := strconv.ParseInt(pb, 10, 0)
		if err != nil {
			return set.String()
		}
		id := int(i)
		if beg < 0 {
			beg, end = id, id
			continue
		}
		if step < 0 {
			end = id
			step = end - beg
			continue
		}
		if id-end == step {
			end = id
			continue
		}
		str += sep + mkRange(beg, end, step)
		sep = ","
		beg, end = id, id
		step = -1
	}

	if beg >= 0 {
		str += sep + mkRange(beg, end, step)
	}

	return str
}

func mkRange(beg, end, step int) string {
	if beg < 0 {
		return ""
	}
	if beg == end {
		return strconv.FormatInt(int64(beg), 10)
	}

	b, e := strconv.FormatInt(int64(beg), 10), strconv.FormatInt(int64(end), 10)
	if step == 1 {
		return b + "-" + e
	}
	if beg+step == end {
		return b + "," + e
	}

	s := strconv.FormatInt(int64(step), 10)
	return b + "-" + e + ":" + s
}
