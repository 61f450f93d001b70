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

// Package builtin ships the small library of built-in descriptors spec.md
// §4.5 describes: mixer, copy, biquads, convolver and delay. Every one of
// them declares its ports via the same four-partition scheme as a
// dynamically loaded plugin, so the compiler treats them uniformly.
package builtin

import (
	"fmt"

	"github.com/soundmesh/fxgraph/core"
)

// Factory builds the port list and function table for one built-in label
// at a given sample rate.
type Factory func(sampleRate float64) (ports []core.PortSpec, funcs core.DescriptorFuncs, supportsNullData bool)

var factories = map[string]Factory{
	"mixer":            newMixer,
	"copy":             newCopy,
	"biquad.lowpass":   newBiquad(lowpass),
	"biquad.highpass":  newBiquad(highpass),
	"biquad.bandpass":  newBiquad(bandpass),
	"biquad.lowshelf":  newBiquad(lowshelf),
	"biquad.highshelf": newBiquad(highshelf),
	"biquad.peaking":   newBiquad(peaking),
	"biquad.notch":     newBiquad(notch),
	"biquad.allpass":   newBiquad(allpass),
	"convolver":        newConvolver,
	"delay":            newDelay,
}

// Loader implements registry.Loader for the "builtin" plugin type without
// importing the registry package (Go interfaces are satisfied
// structurally), avoiding a dependency cycle between registry and builtin.
type Loader struct{}

// NewLoader returns a Loader ready to register with a
// registry.Registry via RegisterLoader.
func NewLoader() Loader { return Loader{} }

// Type returns core.PluginTypeBuiltin.
func (Loader) Type() core.PluginType { return core.PluginTypeBuiltin }

// Open ignores path: the built-in namespace needs no file.
func (Loader) Open(path string) (core.Library, error) { return "builtin", nil }

// MakeDescriptor looks up label in the built-in factory table.
func (Loader) MakeDescriptor(lib core.Library, label string, sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool, error) {
	factory, ok := factories[label]
	if !ok {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("no built-in filter named %q", label)
	}
	ports, funcs, supportsNull := factory(sampleRate)
	return ports, funcs, supportsNull, nil
}

func asAudio(conn core.PortConnection) []float32 {
	buf, _ := conn.([]float32)
	return buf
}

func asControl(conn core.PortConnection) *float64 {
	cell, _ := conn.(*float64)
	return cell
}
