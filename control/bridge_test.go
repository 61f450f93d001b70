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

package control

import (
	"testing"

	"github.com/soundmesh/fxgraph/builtin"
	"github.com/soundmesh/fxgraph/compiler"
	"github.com/soundmesh/fxgraph/registry"
)

func newTestBridge(t *testing.T, control map[string]float64, n int) *Bridge {
	t.Helper()
	reg := registry.New(48000)
	reg.RegisterLoader(builtin.NewLoader())
	c := compiler.New(reg)
	spec := &compiler.GraphSpec{
		Nodes: []compiler.NodeSpec{
			{Type: "builtin", Name: "mix", Label: "mixer", Control: control},
		},
	}
	// The mixer exposes all eight of its audio inputs by default, so n
	// instances take eight capture channels each against one playback.
	g, _, err := c.Compile(spec, compiler.Options{SampleRate: 48000, ChannelsCapture: 8 * n, ChannelsPlayback: n, BlockSize: 16})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return New(g)
}

func TestBridgeDiscoversNamedParameters(t *testing.T) {
	b := newTestBridge(t, nil, 1)
	snap := b.Snapshot()
	found := false
	for _, p := range snap {
		if p.Name == "mix:Gain 1" {
			found = true
			if p.Value != 1 {
				t.Fatalf("Gain 1 default = %v, want 1", p.Value)
			}
		}
	}
	if !found {
		t.Fatalf("snapshot %v missing mix:Gain 1", snap)
	}
}

func TestBridgeSetWritesEveryInstanceAndReportsChangedCount(t *testing.T) {
	b := newTestBridge(t, nil, 3)
	changed := b.Set("mix:Gain 1", 0.5)
	if changed != 3 {
		t.Fatalf("Set() changed = %d, want 3 (one per instance)", changed)
	}
	// Setting the same value again changes nothing.
	if changed := b.Set("mix:Gain 1", 0.5); changed != 0 {
		t.Fatalf("second Set() changed = %d, want 0", changed)
	}
}

func TestBridgeSetUnknownNameIsIgnored(t *testing.T) {
	b := newTestBridge(t, nil, 1)
	if changed := b.Set("mix:Nonexistent", 1); changed != 0 {
		t.Fatalf("Set() on unknown name changed = %d, want 0", changed)
	}
}

func TestBridgeApplyBlobPushesSnapshotOnlyWhenChanged(t *testing.T) {
	b := newTestBridge(t, nil, 1)

	_, changed := b.ApplyBlob(map[string]float64{"mix:Gain 2": 0.75})
	if !changed {
		t.Fatal("ApplyBlob() changed = false, want true")
	}

	snap, changed := b.ApplyBlob(map[string]float64{"mix:Gain 2": 0.75})
	if changed {
		t.Fatal("re-applying the same value changed = true, want false")
	}
	for _, p := range snap {
		if p.Name == "mix:Gain 2" && p.Value != 0.75 {
			t.Fatalf("mix:Gain 2 = %v, want 0.75", p.Value)
		}
	}
}
