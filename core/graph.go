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

// ScheduleEntry is one slot of the flat execution schedule: the per-
// instance handle to run and the descriptor whose Run function to call.
type ScheduleEntry struct {
	Instance   InstanceHandle
	Descriptor *Descriptor
}

// MuxEntry binds one external channel to a specific instance's port. A nil
// *MuxEntry means the channel is dropped: input samples are discarded,
// output channels are silenced (spec.md §3, §4.2 P4).
type MuxEntry struct {
	Descriptor *Descriptor
	Instance   InstanceHandle
	PortIndex  int
}

// Graph owns every Node and Link, the resolved execution schedule, the
// external input/output mux tables and the flat control-port table
// (spec.md §3). It is the root owner: destroying it recursively releases
// everything below.
type Graph struct {
	Nodes []*Node
	Links []*Link

	Schedule []ScheduleEntry

	// InputMux and OutputMux hold one entry per exposed port per
	// instance (exposed ports x N), which equals channels_capture and
	// channels_playback respectively when those divide evenly by the
	// exposed port counts; either may hold a nil entry for a dropped
	// channel.
	InputMux  []*MuxEntry
	OutputMux []*MuxEntry

	// ControlPorts is the flat, ordered list of every control-in port
	// across the graph, in schedule order (spec.md §4.2 P5, consumed by
	// the ControlBridge).
	ControlPorts []*Port

	SampleRate float64
	N          int // replication factor
}

// NewGraph returns an empty graph at the given sample rate.
func NewGraph(sampleRate float64) *Graph {
	return &Graph{SampleRate: sampleRate}
}

// AddNode appends a node, preserving insertion order (used as the tie-break
// for Kahn's algorithm in spec.md §4.2 P5 and as the "first/last node"
// default in P2-P4).
func (g *Graph) AddNode(n *Node) { g.Nodes = append(g.Nodes, n) }

// AddLink appends l to the graph-wide link list. The link must already be
// registered on both endpoint ports (via NewLink).
func (g *Graph) AddLink(l *Link) { g.Links = append(g.Links, l) }

// FirstNode returns the first node in insertion order, or nil if empty.
func (g *Graph) FirstNode() *Node {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[0]
}

// LastNode returns the last node in insertion order, or nil if empty.
func (g *Graph) LastNode() *Node {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[len(g.Nodes)-1]
}

// NodeByName finds a node by its configured name. Anonymous nodes (name
// == "") never match.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	if name == "" {
		return nil, false
	}
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Teardown deactivates and cleans up every instance of every node, then
// releases every descriptor reference held by the graph. Safe to call on
// a partially-built graph during compiler rollback.
func (g *Graph) Teardown(release func(d *Descriptor)) {
	for _, n := range g.Nodes {
		for _, inst := range n.Instances {
			if inst == nil {
				continue
			}
			if n.Descriptor.Funcs.Deactivate != nil {
				n.Descriptor.Funcs.Deactivate(inst)
			}
			if n.Descriptor.Funcs.Cleanup != nil {
				n.Descriptor.Funcs.Cleanup(inst)
			}
		}
		if release != nil {
			release(n.Descriptor)
		}
	}
}
