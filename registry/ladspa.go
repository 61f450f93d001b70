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

package registry

import (
	"fmt"
	"plugin"

	"github.com/soundmesh/fxgraph/core"
)

// LADSPASymbol is what a compiled LADSPA-style plugin library (built with
// -buildmode=plugin) exports under the symbol name "LADSPADescriptor".
// This is the full extent of what the core consumes from the format: spec
// §1 scopes out "the implementation internals of any specific third-party
// plugin format".
type LADSPASymbol interface {
	// Labels lists every descriptor label this library provides.
	Labels() []string

	// Describe returns the port list and function-pointer table for one
	// label, or ok=false if the library has no such label.
	Describe(label string) (ports []core.PortSpec, funcs core.DescriptorFuncs, ok bool)
}

// ladspaLoader loads compiled-as-Go-plugin ".so" files and consumes their
// LADSPASymbol export. It never inspects anything else about the library.
type ladspaLoader struct{}

// NewLADSPALoader returns a Loader for core.PluginTypeLADSPA.
func NewLADSPALoader() Loader { return ladspaLoader{} }

func (ladspaLoader) Type() core.PluginType { return core.PluginTypeLADSPA }

func (ladspaLoader) Open(path string) (core.Library, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := lib.Lookup("LADSPADescriptor")
	if err != nil {
		return nil, err
	}
	symbol, ok := sym.(LADSPASymbol)
	if !ok {
		return nil, fmt.Errorf("%s: LADSPADescriptor does not implement LADSPASymbol", path)
	}
	return symbol, nil
}

func (ladspaLoader) MakeDescriptor(lib core.Library, label string, sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool, error) {
	symbol, ok := lib.(LADSPASymbol)
	if !ok {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("library handle is not a LADSPASymbol")
	}
	ports, funcs, ok := symbol.Describe(label)
	if !ok {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("no such label %q", label)
	}
	return ports, funcs, false, nil
}
