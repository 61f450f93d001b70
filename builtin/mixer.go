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
	"fmt"

	"github.com/soundmesh/fxgraph/core"
)

// mixerInputs is the number of input slots the mixer declares. Unused
// inputs incur no cost: the mixer advertises null-data support, so the
// compiler leaves an unconnected input wired to nil and the Run loop
// below skips it after a nil check.
const mixerInputs = 8

type mixerState struct {
	in   [mixerInputs][]float32
	gain [mixerInputs]*float64
	out  []float32
}

func newMixer(sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool) {
	ports := make([]core.PortSpec, 0, mixerInputs*2+1)
	for i := 0; i < mixerInputs; i++ {
		ports = append(ports, core.PortSpec{Name: fmt.Sprintf("In %d", i+1), Kind: core.AudioIn})
	}
	ports = append(ports, core.PortSpec{Name: "Out", Kind: core.AudioOut})
	for i := 0; i < mixerInputs; i++ {
		ports = append(ports, core.PortSpec{
			Name: fmt.Sprintf("Gain %d", i+1), Kind: core.ControlIn,
			Default: 1, Min: 0, Max: 4,
		})
	}

	// Port index layout: [0,mixerInputs) audio-in, mixerInputs audio-out,
	// [mixerInputs+1, 2*mixerInputs+1) control-in.
	outIndex := mixerInputs
	gainBase := mixerInputs + 1

	funcs := core.DescriptorFuncs{
		Instantiate: func(sampleRate float64, config []byte) (core.InstanceHandle, error) {
			return &mixerState{}, nil
		},
		Activate:   func(core.InstanceHandle) error { return nil },
		Deactivate: func(core.InstanceHandle) {},
		Cleanup:    func(core.InstanceHandle) {},
		ConnectPort: func(h core.InstanceHandle, portIndex int, conn core.PortConnection) {
			s := h.(*mixerState)
			switch {
			case portIndex < mixerInputs:
				s.in[portIndex] = asAudio(conn)
			case portIndex == outIndex:
				s.out = asAudio(conn)
			case portIndex >= gainBase && portIndex < gainBase+mixerInputs:
				s.gain[portIndex-gainBase] = asControl(conn)
			}
		},
		Run: func(h core.InstanceHandle, sampleCount int) {
			s := h.(*mixerState)
			n := sampleCount
			if n > len(s.out) {
				n = len(s.out)
			}
			for j := 0; j < n; j++ {
				s.out[j] = 0
			}
			for i := 0; i < mixerInputs; i++ {
				in := s.in[i]
				gainCell := s.gain[i]
				if in == nil || gainCell == nil {
					continue
				}
				gain := float32(*gainCell)
				m := n
				if m > len(in) {
					m = len(in)
				}
				for j := 0; j < m; j++ {
					s.out[j] += in[j] * gain
				}
			}
		},
	}

	return ports, funcs, true
}
