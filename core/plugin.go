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

// Library is the opaque handle a format-specific loader hands back for a
// loaded plugin file: the format's descriptor symbol looked up in a
// dynamically loaded .so, or a sentinel value for the built-in namespace. The registry package is the
// only code that interprets it.
type Library interface{}

// Plugin is a loaded plugin library, cached by (type, path) in the
// PluginRegistry and shared by every Descriptor drawn from it (spec.md
// §3, §4.1): "descriptors from the same library share one library handle".
type Plugin struct {
	Type    PluginType
	Path    string
	Library Library

	refcount    int32
	descriptors []*Descriptor
}

// NewPlugin wraps a freshly loaded library handle with a refcount of 1.
func NewPlugin(kind PluginType, path string, lib Library) *Plugin {
	return &Plugin{Type: kind, Path: path, Library: lib, refcount: 1}
}

// Ref increments the plugin's refcount (a cache hit in
// PluginRegistry.Load).
func (p *Plugin) Ref() { p.refcount++ }

// release decrements the refcount. Freed reports whether the plugin may
// now be destroyed.
func (p *Plugin) release() (freed bool) {
	p.refcount--
	return p.Freed()
}

// Release is the public entry point used by Registry.ReleasePlugin.
func (p *Plugin) Release() (freed bool) { return p.release() }

// Freed reports the invariant from spec.md §3: a Plugin is freed iff its
// refcount has reached zero AND its descriptor list is empty.
func (p *Plugin) Freed() bool { return p.refcount <= 0 && len(p.descriptors) == 0 }

// Descriptor searches this plugin's cached descriptors for a label.
func (p *Plugin) Descriptor(label string) (*Descriptor, bool) {
	for _, d := range p.descriptors {
		if d.Label == label {
			return d, true
		}
	}
	return nil, false
}

func (p *Plugin) addDescriptor(d *Descriptor) {
	p.descriptors = append(p.descriptors, d)
}

func (p *Plugin) removeDescriptor(d *Descriptor) {
	for i, existing := range p.descriptors {
		if existing == d {
			p.descriptors = append(p.descriptors[:i], p.descriptors[i+1:]...)
			return
		}
	}
}
