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

import (
	"testing"

	"github.com/soundmesh/fxgraph/builtin"
	"github.com/soundmesh/fxgraph/compiler"
	"github.com/soundmesh/fxgraph/registry"
)

func newTestGraph(t *testing.T, spec *compiler.GraphSpec, opts compiler.Options) *Runtime {
	t.Helper()
	reg := registry.New(opts.SampleRate)
	reg.RegisterLoader(builtin.NewLoader())
	c := compiler.New(reg)
	g, _, err := c.Compile(spec, opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return New(g, nil)
}

func buf(vals ...float32) []float32 { return vals }

func TestProcessIdentityCopiesCaptureToPlayback(t *testing.T) {
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{{Type: "builtin", Name: "n1", Label: "copy"}},
	}
	rt := newTestGraph(t, spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 1, ChannelsPlayback: 1, BlockSize: 4})

	capture := buf(1, 2, 3, 4)
	playback := make([]float32, 4)
	err := rt.Process(Block{Capture: [][]float32{capture}, Playback: [][]float32{playback}, Frames: 4})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i, v := range capture {
		if playback[i] != v {
			t.Fatalf("playback[%d] = %v, want %v", i, playback[i], v)
		}
	}
}

func TestProcessMixerSumsScaledInputs(t *testing.T) {
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{
			{
				Type: "builtin", Name: "mix", Label: "mixer",
				Control: map[string]float64{"Gain 1": 0.5, "Gain 2": 0.25},
			},
		},
		Inputs:  []*string{ptrTo("mix:In 1"), ptrTo("mix:In 2")},
		Outputs: []*string{ptrTo("mix:Out")},
	}
	rt := newTestGraph(t, spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 2, ChannelsPlayback: 1, BlockSize: 3})

	in1 := buf(1, 1, 1)
	in2 := buf(4, 4, 4)
	out := make([]float32, 3)
	err := rt.Process(Block{Capture: [][]float32{in1, in2}, Playback: [][]float32{out}, Frames: 3})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i, v := range out {
		if v != 1.5 {
			t.Fatalf("out[%d] = %v, want 1.5", i, v)
		}
	}
}

func TestProcessSkipsBlockWithoutMutatingStateWhenCaptureMissing(t *testing.T) {
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{{Type: "builtin", Name: "n1", Label: "copy"}},
	}
	rt := newTestGraph(t, spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 1, ChannelsPlayback: 1, BlockSize: 4})

	playback := []float32{9, 9, 9, 9}
	err := rt.Process(Block{Capture: nil, Playback: [][]float32{playback}, Frames: 4})
	if err != ErrSkip {
		t.Fatalf("Process() error = %v, want ErrSkip", err)
	}
	for i, v := range playback {
		if v != 9 {
			t.Fatalf("playback[%d] = %v, want untouched 9 (skip must not mutate state)", i, v)
		}
	}
}

func TestProcessZeroFillsUnboundOutputChannel(t *testing.T) {
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{{Type: "builtin", Name: "n1", Label: "copy"}},
		Outputs: []*string{nil},
	}
	rt := newTestGraph(t, spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 1, ChannelsPlayback: 1, BlockSize: 4})

	capture := buf(1, 2, 3, 4)
	playback := []float32{7, 7, 7, 7}
	err := rt.Process(Block{Capture: [][]float32{capture}, Playback: [][]float32{playback}, Frames: 4})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i, v := range playback {
		if v != 0 {
			t.Fatalf("playback[%d] = %v, want 0 (dropped output channel must be silenced)", i, v)
		}
	}
}

func TestResetReactivatesEveryInstance(t *testing.T) {
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{{Type: "builtin", Name: "n1", Label: "copy"}},
	}
	rt := newTestGraph(t, spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 2, ChannelsPlayback: 2, BlockSize: 4})

	if err := rt.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	capture := [][]float32{buf(1, 2, 3, 4), buf(5, 6, 7, 8)}
	playback := [][]float32{make([]float32, 4), make([]float32, 4)}
	if err := rt.Process(Block{Capture: capture, Playback: playback, Frames: 4}); err != nil {
		t.Fatalf("Process() after Reset() error = %v", err)
	}
	for i, v := range capture[0] {
		if playback[0][i] != v {
			t.Fatalf("instance 0 playback[%d] = %v, want %v", i, playback[0][i], v)
		}
	}
}

func ptrTo(s string) *string { return &s }
