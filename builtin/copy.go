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

import "github.com/soundmesh/fxgraph/core"

type copyState struct {
	in  []float32
	out []float32
}

func newCopy(sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool) {
	ports := []core.PortSpec{
		{Name: "In", Kind: core.AudioIn},
		{Name: "Out", Kind: core.AudioOut},
	}

	funcs := core.DescriptorFuncs{
		Instantiate: func(sampleRate float64, config []byte) (core.InstanceHandle, error) {
			return &copyState{}, nil
		},
		Activate:   func(core.InstanceHandle) error { return nil },
		Deactivate: func(core.InstanceHandle) {},
		Cleanup:    func(core.InstanceHandle) {},
		ConnectPort: func(h core.InstanceHandle, portIndex int, conn core.PortConnection) {
			s := h.(*copyState)
			switch portIndex {
			case 0:
				s.in = asAudio(conn)
			case 1:
				s.out = asAudio(conn)
			}
		},
		Run: func(h core.InstanceHandle, sampleCount int) {
			s := h.(*copyState)
			n := sampleCount
			if n > len(s.in) {
				n = len(s.in)
			}
			if n > len(s.out) {
				n = len(s.out)
			}
			copy(s.out[:n], s.in[:n])
		},
	}

	return ports, funcs, true
}
