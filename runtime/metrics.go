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

package runtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms Process reports into. All
// are pre-registered so the hot path never touches the registry itself
// — only the already-resolved vector/collector values.
type Metrics struct {
	blocksProcessed prometheus.Counter
	blocksSkipped   prometheus.Counter
	blockDuration   prometheus.Histogram
}

// NewMetrics registers fxgraph_runtime_* collectors on reg and returns a
// Metrics ready to pass to New. reg is typically prometheus.NewRegistry()
// built once by the host binary (cmd/fxgraphd), not prometheus's global
// DefaultRegisterer, so tests and multiple Runtimes never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxgraph",
			Subsystem: "runtime",
			Name:      "blocks_processed_total",
			Help:      "Number of audio blocks the runtime ran to completion.",
		}),
		blocksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxgraph",
			Subsystem: "runtime",
			Name:      "blocks_skipped_total",
			Help:      "Number of audio blocks skipped for lack of a capture or playback buffer.",
		}),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fxgraph",
			Subsystem: "runtime",
			Name:      "block_duration_seconds",
			Help:      "Wall-clock time spent in one Process call.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		}),
	}
	reg.MustRegister(m.blocksProcessed, m.blocksSkipped, m.blockDuration)
	return m
}

// processed and skip are nil-receiver safe so a Runtime built with a nil
// *Metrics (tests, or a host that opted out of telemetry) never branches
// on the hot path.

func (m *Metrics) processed(d interface{ Seconds() float64 }) {
	if m == nil {
		return
	}
	m.blocksProcessed.Inc()
	m.blockDuration.Observe(d.Seconds())
}

func (m *Metrics) skip() {
	if m == nil {
		return
	}
	m.blocksSkipped.Inc()
}
