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

package builtin

import (
	"math"
	"testing"

	"github.com/soundmesh/fxgraph/core"
)

func TestCopyPassesSamplesThrough(t *testing.T) {
	_, funcs, supportsNull := newCopy(48000)
	h, err := funcs.Instantiate(48000, nil)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if !supportsNull {
		t.Fatal("copy should support null data")
	}

	in := []float32{1, 2, 3, 4}
	out := make([]float32, 4)
	funcs.ConnectPort(h, 0, in)
	funcs.ConnectPort(h, 1, out)
	funcs.Run(h, 4)

	for i, v := range in {
		if out[i] != v {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], v)
		}
	}
}

func TestMixerSumsScaledInputsAndIgnoresUnconnected(t *testing.T) {
	_, funcs, _ := newMixer(48000)
	h, _ := funcs.Instantiate(48000, nil)

	in1 := []float32{1, 1, 1}
	in2 := []float32{2, 2, 2}
	out := make([]float32, 3)
	gain1 := 0.5
	gain2 := 1.0

	funcs.ConnectPort(h, 0, in1)
	funcs.ConnectPort(h, 1, in2)
	funcs.ConnectPort(h, mixerInputs, out)
	funcs.ConnectPort(h, mixerInputs+1, &gain1)
	funcs.ConnectPort(h, mixerInputs+2, &gain2)

	funcs.Run(h, 3)

	want := float32(0.5*1 + 1*2)
	for i, v := range out {
		if v != want {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMixerZeroesOutputWhenNoInputsConnected(t *testing.T) {
	_, funcs, _ := newMixer(48000)
	h, _ := funcs.Instantiate(48000, nil)

	out := []float32{9, 9, 9}
	funcs.ConnectPort(h, mixerInputs, out)
	funcs.Run(h, 3)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestBiquadLowpassAttenuatesHighFrequency(t *testing.T) {
	const sr = 48000.0
	_, funcs, _ := newBiquad(lowpass)(sr)
	h, err := funcs.Instantiate(sr, nil)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := funcs.Activate(h); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	const n = 2048
	in := make([]float32, n)
	out := make([]float32, n)
	freq, q, gain := 200.0, 0.707, 0.0

	funcs.ConnectPort(h, 0, in)
	funcs.ConnectPort(h, 1, out)
	funcs.ConnectPort(h, 2, &freq)
	funcs.ConnectPort(h, 3, &q)
	funcs.ConnectPort(h, 4, &gain)

	// 10 kHz tone should be heavily attenuated by a 200 Hz lowpass.
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 10000 * float64(i) / sr))
	}
	funcs.Run(h, n)

	var inRMS, outRMS float64
	for i := n / 2; i < n; i++ {
		inRMS += float64(in[i]) * float64(in[i])
		outRMS += float64(out[i]) * float64(out[i])
	}
	if outRMS >= inRMS*0.1 {
		t.Fatalf("lowpass did not attenuate: inRMS=%v outRMS=%v", inRMS, outRMS)
	}
}

func TestConvolverDiracKernelIsIdentity(t *testing.T) {
	_, funcs, _ := newConvolver(48000)
	cfg := []byte(`{"kernel":"dirac","length":4}`)
	h, err := funcs.Instantiate(48000, cfg)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := funcs.Activate(h); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	in := []float32{1, 2, 3, 4, 5}
	out := make([]float32, 5)
	funcs.ConnectPort(h, 0, in)
	funcs.ConnectPort(h, 1, out)
	funcs.Run(h, 5)

	for i, v := range in {
		if out[i] != v {
			t.Fatalf("out[%d] = %v, want %v (dirac kernel should be identity)", i, out[i], v)
		}
	}
}

func TestDelayClampsToMaxAndDelaysSamples(t *testing.T) {
	const sr = 1000.0
	_, funcs, _ := newDelay(sr)
	cfg := []byte(`{"max-delay":1}`)
	h, err := funcs.Instantiate(sr, cfg)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := funcs.Activate(h); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	const n = 20
	in := make([]float32, n)
	in[0] = 1
	out := make([]float32, n)
	delaySeconds := 0.01 // 10 samples at sr=1000

	funcs.ConnectPort(h, 0, in)
	funcs.ConnectPort(h, 1, out)
	funcs.ConnectPort(h, 2, &delaySeconds)
	funcs.Run(h, n)

	for i, v := range out {
		if i == 10 {
			if v != 1 {
				t.Fatalf("out[10] = %v, want 1 (10-sample delay)", v)
			}
			continue
		}
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestDelayIsIdentityAtZeroDelay(t *testing.T) {
	_, funcs, _ := newDelay(1000)
	h, err := funcs.Instantiate(1000, []byte(`{"max-delay":1}`))
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := funcs.Activate(h); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	in := []float32{1, 2, 3, 4, 5}
	out := make([]float32, len(in))
	delaySeconds := 0.0

	funcs.ConnectPort(h, 0, in)
	funcs.ConnectPort(h, 1, out)
	funcs.ConnectPort(h, 2, &delaySeconds)
	funcs.Run(h, len(in))

	for i, v := range in {
		if out[i] != v {
			t.Fatalf("out[%d] = %v, want %v (zero delay should be identity)", i, out[i], v)
		}
	}
}

func TestDelayRejectsNonPositiveMaxDelay(t *testing.T) {
	_, funcs, _ := newDelay(48000)
	_, err := funcs.Instantiate(48000, []byte(`{"max-delay":0}`))
	if !core.IsConfigError(err, "INVALID_PARAMETER") {
		t.Fatalf("Instantiate() error = %v, want INVALID_PARAMETER", err)
	}
}
