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

// InstanceHandle is the opaque per-instantiation state a descriptor's
// functions operate on. It stands in for the "void *" instance handle of a
// C-style plugin ABI (design note in spec.md §9): the descriptor is the
// vtable, InstanceHandle is the object it operates on.
type InstanceHandle interface{}

// PortConnection is what ConnectPort wires a port to: a []float32 slice for
// audio ports (shared backing array, written/read in place) or a *float64
// for control ports (the node-resident scalar cell).
type PortConnection interface{}

// DescriptorFuncs is the function-pointer table spec.md §2 assigns to a
// Descriptor: instantiate, activate, deactivate, cleanup, connect_port, run.
// There is no inheritance here — the struct of funcs IS the vtable.
type DescriptorFuncs struct {
	// Instantiate creates a new InstanceHandle at the given sample rate,
	// consuming the node's raw config blob (nil if the node had none).
	Instantiate func(sampleRate float64, config []byte) (InstanceHandle, error)

	// Activate prepares an instance to run. Called once per instance at
	// compile end, and again on GraphRuntime.Reset (spec.md §5).
	Activate func(h InstanceHandle) error

	// Deactivate is the inverse of Activate.
	Deactivate func(h InstanceHandle)

	// Cleanup releases any resources the instance holds. Called during
	// graph teardown and during P1-P5 rollback.
	Cleanup func(h InstanceHandle)

	// ConnectPort points port portIndex (a descriptor-port-index) of
	// instance h at a PortConnection. May be called many times over an
	// instance's life as links are (re)wired.
	ConnectPort func(h InstanceHandle, portIndex int, conn PortConnection)

	// Run processes sampleCount frames using whatever ports were last
	// connected. Must not allocate or block.
	Run func(h InstanceHandle, sampleCount int)
}

// PortSpec is the immutable, plugin-supplied description of one port: its
// kind and, for control ports, its default/min/max and hint flags.
type PortSpec struct {
	Name    string
	Kind    PortKind
	Hint    Hint
	Default float64
	Min     float64
	Max     float64
}

// Descriptor is immutable plugin metadata: the full port list, partitioned
// by kind, default control values, and the function-pointer table. Shared
// (refcounted) across every Node that instantiates the same (plugin,
// label) pair (spec.md §3, §4.1).
type Descriptor struct {
	Plugin           *Plugin
	Label            string
	Ports            []PortSpec
	Funcs            DescriptorFuncs
	SupportsNullData bool

	refcount    int32
	byKind      [4][]int // descriptor-port-index, partitioned by PortKind
	ctrlDefault []float64
}

// NewDescriptor partitions ports by kind, computes default control values
// (applying the SAMPLE_RATE hint by scaling against sampleRate, spec.md
// §4.1), registers itself on the parent plugin's descriptor list (without
// bumping the plugin's refcount), and returns a ready Descriptor with a
// refcount of 1.
func NewDescriptor(plugin *Plugin, label string, ports []PortSpec, funcs DescriptorFuncs, supportsNullData bool, sampleRate float64) *Descriptor {
	d := &Descriptor{
		Plugin:           plugin,
		Label:            label,
		Ports:            ports,
		Funcs:            funcs,
		SupportsNullData: supportsNullData,
		refcount:         1,
	}

	for i, p := range ports {
		d.byKind[p.Kind] = append(d.byKind[p.Kind], i)
	}

	d.ctrlDefault = make([]float64, len(d.byKind[ControlIn]))
	for i, idx := range d.byKind[ControlIn] {
		def := ports[idx].Default
		if ports[idx].Hint.Has(HintSampleRate) {
			def *= sampleRate
		}
		d.ctrlDefault[i] = def
	}

	// A Descriptor holds a back-ref to its Plugin, not a refcount bump:
	// Plugin.freed() requires both its own refcount at zero and this list
	// empty (spec.md §3).
	plugin.addDescriptor(d)
	return d
}

// PortIndices returns the descriptor-port-index list for the given kind.
func (d *Descriptor) PortIndices(kind PortKind) []int { return d.byKind[kind] }

// CountAudioIn is the number of audio input ports.
func (d *Descriptor) CountAudioIn() int { return len(d.byKind[AudioIn]) }

// CountAudioOut is the number of audio output ports.
func (d *Descriptor) CountAudioOut() int { return len(d.byKind[AudioOut]) }

// CountControlIn is the number of control input ports.
func (d *Descriptor) CountControlIn() int { return len(d.byKind[ControlIn]) }

// CountControlOut is the number of control output ports.
func (d *Descriptor) CountControlOut() int { return len(d.byKind[ControlOut]) }

// ControlDefault returns the (sample-rate-scaled) default value of the
// i-th control-in port, i.e. ControlDefault(0) is the first control-in
// port's default (the mixer's "Gain 1").
func (d *Descriptor) ControlDefault(i int) float64 {
	if i < 0 || i >= len(d.ctrlDefault) {
		return 0
	}
	return d.ctrlDefault[i]
}

// IndexOf resolves a port name within a kind to its position among ports
// of that kind (not the descriptor-wide index), returning ok=false if no
// port of that kind carries that name. Used by the compiler's PortRef
// name-resolution rule (spec.md §4.2 P2).
func (d *Descriptor) IndexOf(kind PortKind, name string) (index int, ok bool) {
	for i, idx := range d.byKind[kind] {
		if d.Ports[idx].Name == name {
			return i, true
		}
	}
	return 0, false
}

// DescriptorIndex maps a within-kind index back to the descriptor-wide
// port index used by ConnectPort.
func (d *Descriptor) DescriptorIndex(kind PortKind, withinKind int) int {
	return d.byKind[kind][withinKind]
}

// Ref increments the descriptor's refcount. Only ever called from the
// control thread (PluginRegistry.Descriptor on a cache hit).
func (d *Descriptor) Ref() { d.refcount++ }

// Release decrements the refcount and, once it reaches zero, removes this
// descriptor from its parent plugin's descriptor list (one half of the
// Plugin free condition in spec.md §3) and reports that it was freed.
func (d *Descriptor) Release() bool {
	d.refcount--
	if d.refcount > 0 {
		return false
	}
	d.Plugin.removeDescriptor(d)
	return true
}
