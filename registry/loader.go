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

// Package registry caches loaded plugin libraries by (type, path) and
// dispenses Descriptors, the way gollum's core.PluginRegistry caches
// consumer/producer types, generalized to third-party plugin formats
// (spec.md §4.1).
package registry

import "github.com/soundmesh/fxgraph/core"

// Loader resolves one plugin-type tag: it knows how to open a library file
// (or, for the built-in namespace, requires no file at all) and how to ask
// an opened library for a descriptor by label. The registry never inspects
// a library's internals beyond this contract (spec.md §1: "only the
// descriptor contract is consumed").
type Loader interface {
	// Type returns the type-tag this loader handles.
	Type() core.PluginType

	// Open resolves path to a core.Library handle. For the built-in
	// loader, path is ignored.
	Open(path string) (core.Library, error)

	// MakeDescriptor asks an opened library for the descriptor matching
	// label, returning its port list and function-pointer table.
	// Returns an error if the library has no such label;
	// Registry.Descriptor reports it as a LoadError with code NOT_FOUND.
	MakeDescriptor(lib core.Library, label string, sampleRate float64) (ports []core.PortSpec, funcs core.DescriptorFuncs, supportsNullData bool, err error)
}
