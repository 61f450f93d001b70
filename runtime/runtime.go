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

// Package runtime is the per-block execution engine the audio thread
// invokes against a compiled graph: input demultiplexing, scheduled
// run dispatch, output muxing — all without allocation once a Runtime
// is built (spec.md §4.3).
package runtime

import (
	"errors"
	"time"

	"github.com/soundmesh/fxgraph/core"
)

// ErrSkip is returned by Process when the caller's capture or playback
// block is unavailable this cycle. The entire block is skipped: no
// ConnectPort or Run call happens, no state mutates (spec.md §4.3,
// §7 "RuntimeSkip" — not a true error).
var ErrSkip = errors.New("runtime: capture or playback block unavailable, skipping")

// Block is one cycle's planar capture/playback buffers, indexed by
// external channel (len must be >= the graph's channels_capture /
// channels_playback); each channel slice must hold at least Frames
// samples. The caller owns these buffers; Process never retains them
// past the call.
type Block struct {
	Capture  [][]float32
	Playback [][]float32
	Frames   int
}

// Runtime executes one compiled graph's blocks. Built once per compiled
// core.Graph (typically by the host right after Compiler.Compile
// succeeds) and invoked once per block from the audio thread.
type Runtime struct {
	graph   *core.Graph
	metrics *Metrics
}

// New wraps a compiled graph for per-block execution. metrics may be
// nil, in which case Process runs without recording anything.
func New(g *core.Graph, metrics *Metrics) *Runtime {
	return &Runtime{graph: g, metrics: metrics}
}

// Process executes one block following the exact three-step contract of
// spec.md §4.3:
//
//  1. For each input channel, if the input mux entry is non-nil, connect
//     the target instance's port directly at this block's capture slice.
//  2. For each output channel, if the output mux entry is non-nil,
//     connect the target instance's port at the destination playback
//     slice; otherwise zero-fill the destination.
//  3. Run the flat schedule, in order.
//
// Returns ErrSkip without touching anything if block is incomplete.
func (rt *Runtime) Process(block Block) error {
	g := rt.graph

	if block.Capture == nil || block.Playback == nil || block.Frames <= 0 {
		rt.metrics.skip()
		return ErrSkip
	}
	if len(block.Capture) < len(g.InputMux) || len(block.Playback) < len(g.OutputMux) {
		rt.metrics.skip()
		return ErrSkip
	}

	start := time.Now()

	for i, mux := range g.InputMux {
		if mux == nil {
			continue
		}
		mux.Descriptor.Funcs.ConnectPort(mux.Instance, mux.PortIndex, block.Capture[i][:block.Frames])
	}

	for j, mux := range g.OutputMux {
		dst := block.Playback[j][:block.Frames]
		if mux == nil {
			zero(dst)
			continue
		}
		mux.Descriptor.Funcs.ConnectPort(mux.Instance, mux.PortIndex, dst)
	}

	for _, entry := range g.Schedule {
		entry.Descriptor.Funcs.Run(entry.Instance, block.Frames)
	}

	rt.metrics.processed(time.Since(start))
	return nil
}

// Reset deactivates then reactivates every instance in the graph in
// place: the graph-reset operation of spec.md §5, used when a plugin
// needs to re-initialize internal state (e.g. after a sample-rate
// change) without rebuilding the graph. The caller must ensure the
// stream is paused — Reset is not safe to call concurrently with
// Process.
func (rt *Runtime) Reset() error {
	for _, n := range rt.graph.Nodes {
		funcs := n.Descriptor.Funcs
		for _, inst := range n.Instances {
			if inst == nil {
				continue
			}
			if funcs.Deactivate != nil {
				funcs.Deactivate(inst)
			}
		}
		for _, inst := range n.Instances {
			if inst == nil {
				continue
			}
			if funcs.Activate != nil {
				if err := funcs.Activate(inst); err != nil {
					return core.NewResourceError("reset: reactivating node %q: %v", n.Name, err)
				}
			}
		}
	}
	return nil
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
