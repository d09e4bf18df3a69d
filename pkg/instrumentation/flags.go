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

package instrumentation

import (
	"github.com/intel/compactcore/pkg/config"
)

// options encapsulates our configurable instrumentation parameters.
type options struct {
	// HTTPAddr is the address the diagnostics server listens on.
	// Empty disables it.
	HTTPAddr string
}

// Our instrumentation options.
var opt = defaultOptions().(*options)

func defaultOptions() interface{} {
	return &options{
		HTTPAddr: ":8989",
	}
}

func configNotify(event config.Event, source config.Source) error {
	log.Info("instrumentation configuration is now %v", *opt)
	return server.Reconfigure(opt.HTTPAddr)
}

func init() {
	m := config.Register("instrumentation", "HTTP-exposed diagnostics (metrics, debug dumps).",
		config.WithNotify(configNotify))
	m.StringVar(&opt.HTTPAddr, "http-addr", opt.HTTPAddr,
		"address to serve /metrics and other diagnostics on, empty to disable")
}
