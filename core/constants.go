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

// MaxInstances is the hard ceiling on the replication factor N (spec §4.2
// P3). Exceeding it at compile time is a CapacityError.
const MaxInstances = 64

// PortKind partitions a descriptor's ports into the four groups spec §3
// describes.
type PortKind int

const (
	// AudioIn is an audio input port.
	AudioIn PortKind = iota
	// AudioOut is an audio output port.
	AudioOut
	// ControlIn is a control (scalar) input port.
	ControlIn
	// ControlOut is a control (scalar) output port.
	ControlOut
)

func (k PortKind) String() string {
	switch k {
	case AudioIn:
		return "audio-in"
	case AudioOut:
		return "audio-out"
	case ControlIn:
		return "control-in"
	case ControlOut:
		return "control-out"
	default:
		return "unknown"
	}
}

// IsAudio reports whether this kind carries audio samples rather than a
// control scalar.
func (k PortKind) IsAudio() bool { return k == AudioIn || k == AudioOut }

// IsInput reports whether this kind is a sink (audio-in or control-in).
func (k PortKind) IsInput() bool { return k == AudioIn || k == ControlIn }

// Hint is a bitmask of descriptor-port hint flags (GLOSSARY: "Descriptor
// hint").
type Hint uint32

const (
	// HintNone sets no interpretation hint.
	HintNone Hint = 0
	// HintBoolean marks a control port as boolean-valued.
	HintBoolean Hint = 1 << iota
	// HintInteger marks a control port as integer-valued.
	HintInteger
	// HintSampleRate marks a control port's default/min/max as expressed
	// in Hz fractions to be scaled by the runtime sample rate.
	HintSampleRate
	// HintBoundedBelow marks a control port as having a meaningful
	// minimum value.
	HintBoundedBelow
	// HintBoundedAbove marks a control port as having a meaningful
	// maximum value.
	HintBoundedAbove
)

// Has reports whether the mask contains flag.
func (h Hint) Has(flag Hint) bool { return h&flag != 0 }

// ExternalNone is the sentinel value of Port.External meaning "not exposed
// at the graph boundary".
const ExternalNone = -1

// PluginType is the type-tag used to resolve a loader in the
// PluginRegistry: one of the supported third-party formats or the
// built-in namespace.
type PluginType string

const (
	// PluginTypeBuiltin selects the in-process built-in filter set (§4.5).
	PluginTypeBuiltin PluginType = "builtin"
	// PluginTypeLADSPA selects the LADSPA loader.
	PluginTypeLADSPA PluginType = "ladspa"
	// PluginTypeLV2 selects the LV2 loader.
	PluginTypeLV2 PluginType = "lv2"
)
