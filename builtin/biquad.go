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

	"github.com/soundmesh/fxgraph/core"
)

// biquadVariant selects which of the RBJ "Audio EQ Cookbook" formulas
// computeBiquadCoeffs uses to turn Freq/Q/Gain into a,b coefficients.
type biquadVariant int

const (
	lowpass biquadVariant = iota
	highpass
	bandpass
	lowshelf
	highshelf
	peaking
	notch
	allpass
)

type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64 // a0 is normalized away
}

// computeBiquadCoeffs derives direct-form-II-transposed coefficients from
// the RBJ cookbook formulas, normalized so a0 == 1.
func computeBiquadCoeffs(variant biquadVariant, sampleRate, freq, q, gainDB float64) biquadCoeffs {
	if freq <= 0 {
		freq = 1
	}
	if freq > sampleRate/2*0.999 {
		freq = sampleRate / 2 * 0.999
	}
	if q <= 0 {
		q = 0.0001
	}

	omega := 2 * math.Pi * freq / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2 * q)
	a := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch variant {
	case lowpass:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case highpass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case notch:
		b0 = 1
		b1 = -2 * cosW
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case allpass:
		b0 = 1 - alpha
		b1 = -2 * cosW
		b2 = 1 + alpha
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case peaking:
		b0 = 1 + alpha*a
		b1 = -2 * cosW
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW
		a2 = 1 - alpha/a
	case lowshelf:
		sq := math.Sqrt(a) * alpha * 2
		b0 = a * ((a + 1) - (a-1)*cosW + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW)
		b2 = a * ((a + 1) - (a-1)*cosW - sq)
		a0 = (a + 1) + (a-1)*cosW + sq
		a1 = -2 * ((a - 1) + (a+1)*cosW)
		a2 = (a + 1) + (a-1)*cosW - sq
	case highshelf:
		sq := math.Sqrt(a) * alpha * 2
		b0 = a * ((a + 1) + (a-1)*cosW + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW)
		b2 = a * ((a + 1) + (a-1)*cosW - sq)
		a0 = (a + 1) - (a-1)*cosW + sq
		a1 = 2 * ((a - 1) - (a+1)*cosW)
		a2 = (a + 1) - (a-1)*cosW - sq
	}

	return biquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

type biquadState struct {
	variant    biquadVariant
	sampleRate float64

	in, out   []float32
	freq, q   *float64
	gain      *float64

	coeffs   biquadCoeffs
	lastFreq float64
	lastQ    float64
	lastGain float64

	// direct-form-II-transposed delay elements
	z1, z2 float64
}

// newBiquad returns a built-in Factory bound to one RBJ cookbook variant.
// It is itself a closure rather than a Factory so loader.go's factories
// map can list every filter shape at a glance.
func newBiquad(variant biquadVariant) Factory {
	return func(sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool) {
		ports := []core.PortSpec{
			{Name: "In", Kind: core.AudioIn},
			{Name: "Out", Kind: core.AudioOut},
			{Name: "Freq", Kind: core.ControlIn, Default: 1000, Min: 20, Max: sampleRate / 2, Hint: core.HintBoundedBelow | core.HintBoundedAbove},
			{Name: "Q", Kind: core.ControlIn, Default: 0.707, Min: 0.1, Max: 20, Hint: core.HintBoundedBelow | core.HintBoundedAbove},
			{Name: "Gain", Kind: core.ControlIn, Default: 0, Min: -24, Max: 24, Hint: core.HintBoundedBelow | core.HintBoundedAbove},
		}

		funcs := core.DescriptorFuncs{
			Instantiate: func(sampleRate float64, config []byte) (core.InstanceHandle, error) {
				return &biquadState{variant: variant, sampleRate: sampleRate}, nil
			},
			Activate: func(h core.InstanceHandle) error {
				s := h.(*biquadState)
				s.z1, s.z2 = 0, 0
				s.lastFreq, s.lastQ, s.lastGain = -1, -1, math.NaN()
				return nil
			},
			Deactivate: func(core.InstanceHandle) {},
			Cleanup:    func(core.InstanceHandle) {},
			ConnectPort: func(h core.InstanceHandle, portIndex int, conn core.PortConnection) {
				s := h.(*biquadState)
				switch portIndex {
				case 0:
					s.in = asAudio(conn)
				case 1:
					s.out = asAudio(conn)
				case 2:
					s.freq = asControl(conn)
				case 3:
					s.q = asControl(conn)
				case 4:
					s.gain = asControl(conn)
				}
			},
			Run: func(h core.InstanceHandle, sampleCount int) {
				s := h.(*biquadState)
				n := sampleCount
				if n > len(s.in) {
					n = len(s.in)
				}
				if n > len(s.out) {
					n = len(s.out)
				}

				freq, q, gain := 1000.0, 0.707, 0.0
				if s.freq != nil {
					freq = *s.freq
				}
				if s.q != nil {
					q = *s.q
				}
				if s.gain != nil {
					gain = *s.gain
				}
				if freq != s.lastFreq || q != s.lastQ || gain != s.lastGain {
					s.coeffs = computeBiquadCoeffs(s.variant, s.sampleRate, freq, q, gain)
					s.lastFreq, s.lastQ, s.lastGain = freq, q, gain
				}

				c := s.coeffs
				for i := 0; i < n; i++ {
					x := float64(s.in[i])
					y := c.b0*x + s.z1
					s.z1 = c.b1*x - c.a1*y + s.z2
					s.z2 = c.b2*x - c.a2*y
					s.out[i] = float32(y)
				}
			},
		}

		return ports, funcs, false
	}
}
