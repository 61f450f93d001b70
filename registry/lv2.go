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

// LV2Symbol is the export contract for an LV2-style bundle, addressed by
// URI rather than a plain label. Kept as a distinct type from LADSPASymbol
// even though the shape is similar, because real LV2 hosts resolve
// plugins by URI against a bundle's turtle metadata, not a numeric index —
// the heterogeneity spec.md §1 calls out between third-party formats.
type LV2Symbol interface {
	URIs() []string
	Describe(uri string) (ports []core.PortSpec, funcs core.DescriptorFuncs, supportsNullData bool, ok bool)
}

type lv2Loader struct{}

// NewLV2Loader returns a Loader for core.PluginTypeLV2.
func NewLV2Loader() Loader { return lv2Loader{} }

func (lv2Loader) Type() core.PluginType { return core.PluginTypeLV2 }

func (lv2Loader) Open(path string) (core.Library, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := lib.Lookup("LV2Descriptor")
	if err != nil {
		return nil, err
	}
	symbol, ok := sym.(LV2Symbol)
	if !ok {
		return nil, fmt.Errorf("%s: LV2Descriptor does not implement LV2Symbol", path)
	}
	return symbol, nil
}

func (lv2Loader) MakeDescriptor(lib core.Library, uri string, sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool, error) {
	symbol, ok := lib.(LV2Symbol)
	if !ok {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("library handle is not an LV2Symbol")
	}
	ports, funcs, supportsNull, ok := symbol.Describe(uri)
	if !ok {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("no such URI %q", uri)
	}
	return ports, funcs, supportsNull, nil
}
