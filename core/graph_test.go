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

package core

import "testing"

func newTestDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	plugin := NewPlugin(PluginTypeBuiltin, "builtin", nil)
	ports := []PortSpec{
		{Name: "In", Kind: AudioIn},
		{Name: "Out", Kind: AudioOut},
		{Name: "Gain", Kind: ControlIn, Default: 1, Min: 0, Max: 4},
	}
	return NewDescriptor(plugin, "copy", ports, DescriptorFuncs{}, false, 48000)
}

func TestDescriptorPartitionsPortsByKind(t *testing.T) {
	d := newTestDescriptor(t)
	if got := d.CountAudioIn(); got != 1 {
		t.Fatalf("CountAudioIn() = %d, want 1", got)
	}
	if got := d.CountAudioOut(); got != 1 {
		t.Fatalf("CountAudioOut() = %d, want 1", got)
	}
	if got := d.CountControlIn(); got != 1 {
		t.Fatalf("CountControlIn() = %d, want 1", got)
	}
	if got := d.ControlDefault(0); got != 1 {
		t.Fatalf("ControlDefault(0) = %v, want 1", got)
	}
}

func TestDescriptorSampleRateHintScalesDefault(t *testing.T) {
	plugin := NewPlugin(PluginTypeBuiltin, "builtin", nil)
	ports := []PortSpec{
		{Name: "Delay", Kind: ControlIn, Default: 0.5, Hint: HintSampleRate},
	}
	d := NewDescriptor(plugin, "delay", ports, DescriptorFuncs{}, false, 48000)
	if got, want := d.ControlDefault(0), 0.5*48000; got != want {
		t.Fatalf("ControlDefault(0) = %v, want %v", got, want)
	}
}

func TestPluginFreedRequiresRefcountZeroAndNoDescriptors(t *testing.T) {
	plugin := NewPlugin(PluginTypeBuiltin, "builtin", nil)
	d := NewDescriptor(plugin, "copy", nil, DescriptorFuncs{}, false, 48000)

	plugin.Ref() // a second load() caller
	if plugin.release() {
		t.Fatal("plugin freed while a second load() ref is still outstanding")
	}
	if plugin.Freed() {
		t.Fatal("Freed() true while descriptor list non-empty")
	}

	d.Release()
	plugin.release() // the original load() ref
	if !plugin.Freed() {
		t.Fatal("plugin should be freed once refcount hits zero and descriptor list is empty")
	}
}

func TestLinkRegistersOnBothEndpointsAndIncrementsInDegree(t *testing.T) {
	d := newTestDescriptor(t)
	a := NewNode("A", d, nil)
	b := NewNode("B", d, nil)
	a.SetInstanceCount(1)
	b.SetInstanceCount(1)

	out := a.Ports[AudioOut][0]
	in := b.Ports[AudioIn][0]

	link := NewLink(out, in)
	if out.LinkCount() != 1 || in.LinkCount() != 1 {
		t.Fatalf("expected link registered on both endpoints, got out=%d in=%d", out.LinkCount(), in.LinkCount())
	}
	if b.InDegree != 1 {
		t.Fatalf("InDegree = %d, want 1", b.InDegree)
	}

	link.Remove()
	if out.LinkCount() != 0 || in.LinkCount() != 0 {
		t.Fatal("Remove did not detach link from both endpoints")
	}
	if b.InDegree != 0 {
		t.Fatalf("InDegree after Remove = %d, want 0", b.InDegree)
	}
}

func TestNodePortResolvesByIndexThenName(t *testing.T) {
	d := newTestDescriptor(t)
	n := NewNode("mix", d, nil)
	n.SetInstanceCount(1)

	byIndex, ok := n.Port(AudioIn, "0")
	if !ok || byIndex != n.Ports[AudioIn][0] {
		t.Fatal("expected index token to resolve to first port of kind")
	}

	byName, ok := n.Port(ControlIn, "Gain")
	if !ok || byName != n.Ports[ControlIn][0] {
		t.Fatal("expected name token to resolve by descriptor port name")
	}

	if _, ok := n.Port(ControlIn, "Nope"); ok {
		t.Fatal("expected unknown name to fail resolution")
	}
}
