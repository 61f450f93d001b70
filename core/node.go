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

// Node is one vertex of the graph: a Descriptor plus N parallel Instances,
// typed port arrays, an optional raw config blob, an in-degree counter and
// a visited flag used by the topological sort (spec.md §3).
//
// A Node exclusively owns its ports, its config blob and its instances;
// it does not own its Descriptor (shared, refcounted via the
// PluginRegistry) and it does not own its outgoing Links (owned by the
// Graph, intrusively listed on the endpoint ports).
type Node struct {
	Name       string
	Descriptor *Descriptor
	Config     []byte

	// Ports[kind] holds one *Port per descriptor port of that kind, in
	// descriptor order.
	Ports [4][]*Port

	// Instances holds one InstanceHandle per replica, len N.
	Instances []InstanceHandle

	// ControlOverrides holds control values a NodeSpec's "control" map
	// set by name (spec.md §6), staged here during P1 since the
	// per-instance Control cells SetInstanceCount allocates don't exist
	// until N is known in P3.
	ControlOverrides map[string]float64

	InDegree int
	Visited  bool
}

// NewNode allocates a Node's four port arrays sized from the descriptor's
// partition, each port initialized with External = ExternalNone and (for
// control-in ports) the descriptor's default value broadcast to all N
// instance slots once N is known (spec.md §4.2 P1). N is not known until
// P3, so control cells are sized to len(instances) by SetInstanceCount.
func NewNode(name string, desc *Descriptor, config []byte) *Node {
	n := &Node{Name: name, Descriptor: desc, Config: config}
	for kind := AudioIn; kind <= ControlOut; kind++ {
		indices := desc.PortIndices(kind)
		ports := make([]*Port, len(indices))
		for i, descIdx := range indices {
			ports[i] = NewPort(n, kind, i, descIdx)
		}
		n.Ports[kind] = ports
	}
	return n
}

// SetInstanceCount allocates N instance slots and, for every control-in
// port, N copies of its initial scalar cell value: a NodeSpec control
// override if one was staged by name in P1, otherwise the descriptor
// default. Called once the replication factor is known (spec.md §4.2 P3).
func (n *Node) SetInstanceCount(count int) {
	n.Instances = make([]InstanceHandle, count)
	for i, port := range n.Ports[ControlIn] {
		port.Control = make([]float64, count)
		value := n.Descriptor.ControlDefault(i)
		if n.ControlOverrides != nil {
			name := n.Descriptor.Ports[port.DescIndex].Name
			if override, ok := n.ControlOverrides[name]; ok {
				value = override
			}
		}
		for inst := range port.Control {
			port.Control[inst] = value
		}
	}
	for _, port := range n.Ports[ControlOut] {
		port.Control = make([]float64, count)
	}
}

// InstanceCount returns N, the replication factor of this node.
func (n *Node) InstanceCount() int { return len(n.Instances) }

// ControlPort finds a control-in port by name on this node.
func (n *Node) ControlPort(name string) (*Port, bool) {
	for _, p := range n.Ports[ControlIn] {
		if n.Descriptor.Ports[p.DescIndex].Name == name {
			return p, true
		}
	}
	return nil, false
}

// Port resolves a PortRef's trailing token against this node's ports of
// the given kind: a decimal integer less than the port count is an index,
// otherwise it is matched by descriptor port name (spec.md §4.2 P2).
func (n *Node) Port(kind PortKind, token string) (*Port, bool) {
	ports := n.Ports[kind]
	if idx, ok := parsePortIndex(token, len(ports)); ok {
		return ports[idx], true
	}
	withinKind, ok := n.Descriptor.IndexOf(kind, token)
	if !ok {
		return nil, false
	}
	return ports[withinKind], true
}

func parsePortIndex(token string, count int) (int, bool) {
	if token == "" {
		return 0, false
	}
	n := 0
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n >= count {
		return 0, false
	}
	return n, true
}
