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

// Port belongs to exactly one Node. It tracks its kind, its position
// within that kind on the node, the descriptor-wide port index used to
// call ConnectPort, its link list, its external exposure slot and, for
// control ports, the scalar cell plugins read/write in place (spec.md §3).
//
// Nodes are not modeled as an index-stable arena here: unlike the C-style
// source this is ported from, Go's garbage collector handles the
// Node<->Port<->Link reference cycles without help, so a Port holds a
// direct pointer to its owning Node rather than an arena index (spec.md §9
// design note, resolved as an open question in DESIGN.md).
type Port struct {
	Node       *Node
	Kind       PortKind
	IndexInKind int
	DescIndex  int
	External   int
	Links      []*Link

	// Control holds one scalar per instance for control ports (len N).
	// Plugins are connected to &Control[i] so the audio thread observes
	// the latest write at the next block boundary (spec.md §5).
	Control []float64

	// Buffers holds one audio buffer per instance for OUTPUT audio
	// ports, lazily allocated at compile time (spec.md §3). Input audio
	// ports never own a buffer; they read whatever their single link (or
	// an external mux entry) connected them to.
	Buffers [][]float32
}

// NewPort creates a port with no links and no external exposure.
func NewPort(node *Node, kind PortKind, indexInKind, descIndex int) *Port {
	return &Port{
		Node:        node,
		Kind:        kind,
		IndexInKind: indexInKind,
		DescIndex:   descIndex,
		External:    ExternalNone,
	}
}

// LinkCount returns the number of links attached to this port (n_links in
// spec.md §3).
func (p *Port) LinkCount() int { return len(p.Links) }

// IsLinked reports whether this port has at least one link.
func (p *Port) IsLinked() bool { return len(p.Links) > 0 }

// IsExternal reports whether this port is exposed at the graph boundary.
func (p *Port) IsExternal() bool { return p.External != ExternalNone }

// addLink appends l to this port's link list.
func (p *Port) addLink(l *Link) { p.Links = append(p.Links, l) }

// EnsureBuffers allocates n per-instance buffers of blockSize frames for
// an output audio port if they are not already present, returning the
// (possibly pre-existing) buffer set. A no-op for ports that already have
// buffers sized for at least blockSize.
func (p *Port) EnsureBuffers(n, blockSize int) [][]float32 {
	if len(p.Buffers) == n && n > 0 && len(p.Buffers[0]) >= blockSize {
		return p.Buffers
	}
	bufs := make([][]float32, n)
	for i := range bufs {
		bufs[i] = make([]float32, blockSize)
	}
	p.Buffers = bufs
	return p.Buffers
}
