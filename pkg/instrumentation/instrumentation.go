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

// Package instrumentation is the thin top-level wrapper compactd
// starts and stops around its HTTP-exposed diagnostics: a
// package-level options struct registered with pkg/config, an
// http.Server underneath, and a Prometheus exporter mounted on it.
package instrumentation

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ihttp "github.com/intel/compactcore/pkg/instrumentation/http"
	logger "github.com/intel/compactcore/pkg/log"
	"github.com/intel/compactcore/pkg/metrics"
)

var log = logger.NewLogger("instrumentation")

// MetricsPath is the URL path Prometheus scrapes.
const MetricsPath = "/metrics"

var server = ihttp.NewServer()

// Start brings up the HTTP endpoint (metrics, and whatever else has
// already been registered on GetMux) at the configured address. A
// disabled (empty) address is not an error: it just means Start is a
// no-op, letting an operator disable the exporter via config.
func Start() error {
	gatherer, err := metrics.NewMetricGatherer()
	if err != nil {
		return err
	}

	server.GetMux().Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if err := server.Start(opt.HTTPAddr); err != nil {
		return err
	}

	if opt.HTTPAddr != "" {
		log.Info("serving metrics on %s%s", server.GetAddress(), MetricsPath)
	}

	return nil
}

// Stop tears down the HTTP endpoint.
func Stop() {
	server.Stop()
}

// GetMux returns the shared mux so callers can register further debug
// handlers alongside /metrics before or after Start.
func GetMux() *ihttp.ServeMux {
	return server.GetMux()
}

// HandleFunc is a convenience wrapper around GetMux().HandleFunc.
func HandleFunc(pattern string, fn func(http.ResponseWriter, *http.Request)) {
	server.GetMux().HandleFunc(pattern, fn)
}
