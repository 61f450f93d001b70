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
	"github.com/pkg/errors"
	"github.com/soundmesh/fxgraph/core"
)

type delayState struct {
	ring       []float32
	write      int
	sampleRate float64
	maxDelay   float64 // clamp ceiling, in seconds
	delayCtrl  *float64

	in, out []float32
}

// newDelay's ring buffer is sized once at instantiation time from the
// "max-delay" config setting, and the "Delay (s)" control port is
// clamped to that ceiling on every block.
func newDelay(sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool) {
	ports := []core.PortSpec{
		{Name: "In", Kind: core.AudioIn},
		{Name: "Out", Kind: core.AudioOut},
		{Name: "Delay (s)", Kind: core.ControlIn, Default: 0, Min: 0, Max: 10, Hint: core.HintBoundedBelow | core.HintBoundedAbove},
	}

	funcs := core.DescriptorFuncs{
		Instantiate: func(sampleRate float64, config []byte) (core.InstanceHandle, error) {
			reader, err := core.NewConfigReaderFromJSON(config)
			if err != nil {
				return nil, errors.Wrap(err, "delay: decoding config")
			}
			maxSeconds := reader.GetFloat("max-delay", 1)
			if err := reader.Errors.OrNil(); err != nil {
				return nil, errors.Wrap(err, "delay: invalid config")
			}
			if maxSeconds <= 0 {
				return nil, core.NewConfigError("INVALID_PARAMETER", "delay: max-delay must be > 0, got %v", maxSeconds)
			}
			ringLen := int(maxSeconds*sampleRate) + 1
			return &delayState{
				ring:       make([]float32, ringLen),
				sampleRate: sampleRate,
				maxDelay:   maxSeconds,
			}, nil
		},
		Activate: func(h core.InstanceHandle) error {
			s := h.(*delayState)
			for i := range s.ring {
				s.ring[i] = 0
			}
			s.write = 0
			return nil
		},
		Deactivate: func(core.InstanceHandle) {},
		Cleanup:    func(core.InstanceHandle) {},
		ConnectPort: func(h core.InstanceHandle, portIndex int, conn core.PortConnection) {
			s := h.(*delayState)
			switch portIndex {
			case 0:
				s.in = asAudio(conn)
			case 1:
				s.out = asAudio(conn)
			case 2:
				s.delayCtrl = asControl(conn)
			}
		},
		Run: func(h core.InstanceHandle, sampleCount int) {
			s := h.(*delayState)
			n := sampleCount
			if n > len(s.in) {
				n = len(s.in)
			}
			if n > len(s.out) {
				n = len(s.out)
			}
			ringLen := len(s.ring)
			if ringLen == 0 {
				return
			}

			seconds := 0.0
			if s.delayCtrl != nil {
				seconds = *s.delayCtrl
			}
			if seconds > s.maxDelay {
				seconds = s.maxDelay
			}
			if seconds < 0 {
				seconds = 0
			}
			delaySamples := int(seconds * s.sampleRate)
			if delaySamples >= ringLen {
				delaySamples = ringLen - 1
			}

			for i := 0; i < n; i++ {
				// Write before reading: at delaySamples == 0 this makes
				// the output the current input sample, not whatever was
				// in the ring ringLen samples ago.
				s.ring[s.write%ringLen] = s.in[i]
				readIdx := (s.write - delaySamples + ringLen*2) % ringLen
				s.out[i] = s.ring[readIdx]
				s.write++
			}
		},
	}

	return ports, funcs, false
}
