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

// Package control is the non-real-time side of the property channel:
// it turns a compiled graph's flat control-port table into a named
// parameter list, accepts updates from any transport and writes them
// into the node-resident scalar cells the audio thread reads (spec.md
// §4.4).
package control

import (
	"fmt"

	"github.com/soundmesh/fxgraph/core"
)

// Kind classifies a Param's value domain, derived once at discovery
// time from the underlying PortSpec's hint flags (spec.md §4.4).
type Kind int

const (
	// KindFloat is the default: an unconstrained (or ranged) scalar.
	KindFloat Kind = iota
	// KindInteger marks a port hinted INTEGER with a non-degenerate range.
	KindInteger
	// KindBoolean marks a port hinted BOOLEAN, or an INTEGER port whose
	// min equals its max (a fixed, boolean-like single setting).
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return "float"
	}
}

// Param is one discovered parameter: its full name, current
// representative value (instance 0's cell), type and numeric range.
type Param struct {
	Name  string
	Value float64
	Kind  Kind
	Min   float64
	Max   float64
}

// Params is an ordered parameter snapshot, in graph.control_port order.
type Params []Param

// Mutator is the surface a control transport needs: apply a batch of
// named updates and read back the current snapshot. WSBridge and
// RedisBridge depend on this interface rather than the concrete *Bridge
// so an AuditedBridge can be substituted transparently and still have
// its own Set (and therefore its audit trail) invoked on every update.
type Mutator interface {
	ApplyBlob(updates map[string]float64) (Params, bool)
	Snapshot() Params
}

// entry binds a discovered name back to the live port it was built from.
type entry struct {
	port *core.Port
	spec core.PortSpec
}

// Bridge is the parameter surface over one compiled graph's control
// ports. Built once per compile and shared by every transport (wsbridge,
// redisbridge, kafkasink); Set is safe to call concurrently with the
// audio thread's reads, since a write is a single scalar store observed
// with relaxed atomicity at the next block boundary (spec.md §4.3, §5).
type Bridge struct {
	order  []entry
	byName map[string]*entry
}

// New builds a Bridge over a compiled graph's control ports, naming each
// `<node_name>:<port_name>` (or just `<port_name>` for an anonymous
// node) and applying the SAMPLE_RATE hint to the port's declared range
// (spec.md §4.4).
func New(g *core.Graph) *Bridge {
	b := &Bridge{byName: make(map[string]*entry, len(g.ControlPorts))}
	for _, p := range g.ControlPorts {
		spec := p.Node.Descriptor.Ports[p.DescIndex]
		name := spec.Name
		if p.Node.Name != "" {
			name = fmt.Sprintf("%s:%s", p.Node.Name, spec.Name)
		}
		min, max := spec.Min, spec.Max
		if spec.Hint.Has(core.HintSampleRate) {
			min *= g.SampleRate
			max *= g.SampleRate
		}
		e := entry{port: p, spec: core.PortSpec{
			Name: name, Kind: spec.Kind, Hint: spec.Hint,
			Default: spec.Default, Min: min, Max: max,
		}}
		b.order = append(b.order, e)
		b.byName[name] = &b.order[len(b.order)-1]
	}
	return b
}

func kindOf(spec core.PortSpec) Kind {
	switch {
	case spec.Hint.Has(core.HintBoolean):
		return KindBoolean
	case spec.Hint.Has(core.HintInteger):
		if spec.Min == spec.Max {
			return KindBoolean
		}
		return KindInteger
	default:
		return KindFloat
	}
}

func (e *entry) toParam() Param {
	value := e.spec.Default
	if len(e.port.Control) > 0 {
		value = e.port.Control[0]
	}
	return Param{
		Name:  e.spec.Name,
		Value: value,
		Kind:  kindOf(e.spec),
		Min:   e.spec.Min,
		Max:   e.spec.Max,
	}
}

// Set finds the named parameter, coerces value into every instance's
// control cell and returns how many instance cells actually changed.
// Unknown names are ignored and return 0 (spec.md §4.4).
func (b *Bridge) Set(name string, value float64) int {
	e, ok := b.byName[name]
	if !ok {
		return 0
	}
	changed := 0
	for i := range e.port.Control {
		if e.port.Control[i] != value {
			e.port.Control[i] = value
			changed++
		}
	}
	return changed
}

// Snapshot returns the current value of every control port in order.
func (b *Bridge) Snapshot() Params {
	params := make(Params, len(b.order))
	for i := range b.order {
		params[i] = b.order[i].toParam()
	}
	return params
}

// ApplyBlob applies a batch of (name, value) updates via Set and reports
// the resulting snapshot alongside whether anything actually changed —
// the "parse, apply, and if any changed push the fresh snapshot back"
// sequence spec.md §4.4 describes for an inbound parameter blob.
func (b *Bridge) ApplyBlob(updates map[string]float64) (Params, bool) {
	changed := false
	for name, value := range updates {
		if b.Set(name, value) > 0 {
			changed = true
		}
	}
	return b.Snapshot(), changed
}
