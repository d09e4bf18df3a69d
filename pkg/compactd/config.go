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

package compactd

import (
	"sync"
	"time"

	cfg "github.com/intel/compactcore/pkg/config"
)

// options is the runtime-tunable configuration for the compaction
// daemon: a package-level options struct registered as a config.Module,
// the same pattern pkg/log/flags.go uses for its own options.
type options struct {
	mu sync.RWMutex

	// WakeInterval is how often each node worker wakes up on its own
	// even without an explicit Wake() call.
	WakeInterval time.Duration
	// MinOrder is the smallest allocation order a node worker will try
	// to compact for proactively.
	MinOrder int
}

func (o *options) get() (time.Duration, int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.WakeInterval, o.MinOrder
}

var opt = &options{
	WakeInterval: 10 * time.Second,
	MinOrder:     2,
}

func init() {
	m := cfg.Register("compactd", "background compaction daemon")
	m.DurationVar((*time.Duration)(&opt.WakeInterval), "wake-interval", opt.WakeInterval,
		"how often a node worker wakes up to check its zones even without being signalled")
	m.IntVar(&opt.MinOrder, "min-order", opt.MinOrder,
		"smallest allocation order node workers proactively try to keep available")
}
