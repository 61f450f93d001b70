// Copyright 2015-2016 trivago GmbH
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

// Package telemetry owns the host's Prometheus registry and the HTTP
// server that exports it. Unlike the teacher's metrics service, this
// drives prometheus/client_golang directly rather than bridging a
// go-metrics registry through a third library (DESIGN.md records why:
// running two metrics systems side by side would just contradict each
// other).
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRegistry returns a fresh, process-local registry. Host components
// (runtime.NewMetrics, future collectors) register against this rather
// than prometheus's global DefaultRegisterer, so a test can build its
// own registry without colliding with another test's collectors.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Serve starts an HTTP server exporting reg at "/metrics" on addr. It
// runs in its own goroutine and returns a stop function the caller
// should invoke during shutdown; stop blocks until the server has
// drained in-flight requests or the grace period elapses.
func Serve(addr string, reg *prometheus.Registry) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("telemetry: metrics server stopped unexpectedly")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warning("telemetry: graceful shutdown failed")
		}
	}
}
