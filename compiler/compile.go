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

package compiler

import (
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/trivago/tgo/tcontainer"

	"github.com/soundmesh/fxgraph/core"
	"github.com/soundmesh/fxgraph/registry"
)

// Options configures one Compile call: the stream parameters the graph is
// compiled against (spec.md §4.2 P3) and the block size used to size the
// scratch buffers and pre-allocate output port buffers.
type Options struct {
	SampleRate       float64
	ChannelsCapture  int
	ChannelsPlayback int
	BlockSize        int
}

// Compiler turns a GraphSpec into an executable core.Graph against one
// PluginRegistry (spec.md §4.2).
type Compiler struct {
	Registry *registry.Registry
}

// New returns a Compiler backed by reg.
func New(reg *registry.Registry) *Compiler {
	return &Compiler{Registry: reg}
}

// Compile runs phases P1-P5 against spec, returning the finished graph,
// any non-fatal warnings, or the first fatal error encountered. On error
// every already-instantiated handle is rolled back (cleanup + registry
// release) and no partial graph is returned (spec.md §4.2 "Failure
// semantics").
func (c *Compiler) Compile(spec *GraphSpec, opts Options) (*core.Graph, []Warning, error) {
	if len(spec.Nodes) == 0 {
		return nil, nil, core.NewConfigError("EMPTY_GRAPH", "graph description has no nodes")
	}

	core.EnsureScratch(opts.BlockSize)

	g := core.NewGraph(opts.SampleRate)
	var warnings []Warning

	if err := c.materializeNodes(g, spec, opts, &warnings); err != nil {
		c.rollback(g)
		return nil, nil, err
	}

	if err := c.resolveLinks(g, spec); err != nil {
		c.rollback(g)
		return nil, nil, err
	}

	n, err := c.bindExternalsAndReplicate(g, spec, opts, &warnings)
	if err != nil {
		c.rollback(g)
		return nil, nil, err
	}
	g.N = n

	if err := c.exposePorts(g, spec, n); err != nil {
		c.rollback(g)
		return nil, nil, err
	}

	if err := c.schedule(g, opts.BlockSize); err != nil {
		c.rollback(g)
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"nodes":    len(g.Nodes),
		"links":    len(g.Links),
		"n":        g.N,
		"warnings": len(warnings),
	}).Info("compiler: graph compiled")

	return g, warnings, nil
}

// rollback cleans up every node materialized so far: deactivates and
// cleans up any already-created instances, then releases the descriptor
// and plugin references P1 acquired (spec.md §4.2 "Failure semantics").
func (c *Compiler) rollback(g *core.Graph) {
	g.Teardown(func(d *core.Descriptor) {
		plugin := d.Plugin
		c.Registry.ReleaseDescriptor(d)
		c.Registry.ReleasePlugin(plugin)
	})
}

// materializeNodes is P1: resolve every NodeSpec to a Descriptor, allocate
// its Node, and stage control overrides for P3 (spec.md §4.2 P1).
func (c *Compiler) materializeNodes(g *core.Graph, spec *GraphSpec, opts Options, warnings *[]Warning) error {
	for _, ns := range spec.Nodes {
		pluginType := core.PluginType(ns.Type)
		pluginPath := ns.Plugin
		if pluginType == core.PluginTypeBuiltin {
			pluginPath = "builtin"
		}
		if ns.Label == "" {
			return core.NewConfigError("MISSING_FIELD", "node %q has no label", ns.Name)
		}

		plugin, err := c.Registry.Load(pluginType, pluginPath)
		if err != nil {
			return err
		}
		desc, err := c.Registry.Descriptor(plugin, ns.Label)
		if err != nil {
			c.Registry.ReleasePlugin(plugin)
			return err
		}

		settings := toMarshalMap(ns.Config)
		configBytes, err := json.Marshal(map[string]interface{}(settings))
		if err != nil {
			c.Registry.ReleaseDescriptor(desc)
			c.Registry.ReleasePlugin(plugin)
			return core.NewConfigError("INVALID_CONFIG", "node %q: encoding config: %v", ns.Name, err)
		}

		node := core.NewNode(ns.Name, desc, configBytes)

		reader := core.NewConfigReader(core.NewNodeConfig(ns.Name, ns.Label, settings))
		scope := reader.GetLogScope()
		scope.Debug.Printf("materialized node %q (%s:%s)", ns.Name, ns.Type, ns.Label)

		if len(ns.Control) > 0 {
			node.ControlOverrides = make(map[string]float64, len(ns.Control))
			for name, value := range ns.Control {
				if _, ok := desc.IndexOf(core.ControlIn, name); !ok {
					*warnings = append(*warnings, Warning{
						Code:    "UNKNOWN_CONTROL",
						Message: "node \"" + ns.Name + "\" has no control port named \"" + name + "\"",
					})
					continue
				}
				node.ControlOverrides[name] = value
			}
		}

		g.AddNode(node)
	}
	return nil
}

// toMarshalMap converts a yaml.v2-decoded config sub-tree (typically
// map[interface{}]interface{}) into a tcontainer.MarshalMap, the same
// container gollum's PluginConfigReader hands to plugins.
func toMarshalMap(raw interface{}) tcontainer.MarshalMap {
	if raw == nil {
		return tcontainer.NewMarshalMap()
	}
	converted := tcontainer.TryConvertToMarshalMap(raw, nil)
	if m, ok := converted.(tcontainer.MarshalMap); ok {
		return m
	}
	return tcontainer.NewMarshalMap()
}

// resolveLinks is P2: resolve every LinkSpec's PortRefs and wire a Link
// between them (spec.md §4.2 P2).
func (c *Compiler) resolveLinks(g *core.Graph, spec *GraphSpec) error {
	for _, ls := range spec.Links {
		outPort, err := resolvePortRef(g, ls.Output, core.AudioOut, g.LastNode())
		if err != nil {
			return err
		}
		inPort, err := resolvePortRef(g, ls.Input, core.AudioIn, g.FirstNode())
		if err != nil {
			return err
		}
		if inPort.LinkCount() != 0 {
			return core.NewConfigError("IN_USE", "input port %q on node %q already has a link", ls.Input, inPort.Node.Name)
		}
		link := core.NewLink(outPort, inPort)
		g.AddLink(link)
	}
	return nil
}

// resolvePortRef resolves a PortRef string against kind, defaulting to
// defaultNode when the ref carries no "node:port" colon (spec.md §4.2 P2).
func resolvePortRef(g *core.Graph, ref string, kind core.PortKind, defaultNode *core.Node) (*core.Port, error) {
	node := defaultNode
	token := ref
	if idx := strings.IndexByte(ref, ':'); idx >= 0 {
		name := ref[:idx]
		token = ref[idx+1:]
		n, ok := g.NodeByName(name)
		if !ok {
			return nil, core.NewConfigError("UNKNOWN_NODE", "no node named %q", name)
		}
		node = n
	}
	if node == nil {
		return nil, core.NewConfigError("UNKNOWN_PORT", "cannot resolve %q: graph has no nodes", ref)
	}
	port, ok := node.Port(kind, token)
	if !ok {
		return nil, core.NewConfigError("UNKNOWN_PORT", "node %q has no %s port %q", node.Name, kind, token)
	}
	return port, nil
}

// bindExternalsAndReplicate is P3: compute the replication factor N and
// create N instances of every node, pre-wiring their ports to the shared
// scratch buffers and activating them (spec.md §4.2 P3).
func (c *Compiler) bindExternalsAndReplicate(g *core.Graph, spec *GraphSpec, opts Options, warnings *[]Warning) (int, error) {
	nIn := len(spec.Inputs)
	if nIn == 0 {
		nIn = g.FirstNode().Descriptor.CountAudioIn()
	}
	nOut := len(spec.Outputs)
	if nOut == 0 {
		nOut = g.LastNode().Descriptor.CountAudioOut()
	}
	if nIn <= 0 {
		return 0, core.NewConfigError("NO_INPUT_PORTS", "graph exposes zero input channels")
	}
	if nOut <= 0 {
		return 0, core.NewConfigError("NO_OUTPUT_PORTS", "graph exposes zero output channels")
	}

	n := opts.ChannelsCapture / nIn
	if opts.ChannelsPlayback/nOut != n {
		return 0, core.NewConfigError("CHANNEL_MISMATCH",
			"channels_capture=%d / n_in=%d yields N=%d, but channels_playback=%d / n_out=%d yields %d",
			opts.ChannelsCapture, nIn, n, opts.ChannelsPlayback, nOut, opts.ChannelsPlayback/nOut)
	}
	if n == 0 {
		n = 1
		*warnings = append(*warnings, Warning{
			Code:    "FORCED_REPLICATION",
			Message: "replication factor computed to 0; forcing N=1, some channels will be unconnected",
		})
	}
	if n > core.MaxInstances {
		return 0, core.NewCapacityError("replication factor N=%d exceeds MAX_INSTANCES=%d", n, core.MaxInstances)
	}

	blockSize := opts.BlockSize
	for _, node := range g.Nodes {
		node.SetInstanceCount(n)

		for i := 0; i < n; i++ {
			inst, err := node.Descriptor.Funcs.Instantiate(opts.SampleRate, node.Config)
			if err != nil {
				return 0, core.NewResourceError("node %q instance %d: %v", node.Name, i, err)
			}
			node.Instances[i] = inst
		}

		preWireInstances(node, blockSize)

		for i, inst := range node.Instances {
			if node.Descriptor.Funcs.Activate == nil {
				continue
			}
			if err := node.Descriptor.Funcs.Activate(inst); err != nil {
				return 0, core.NewResourceError("node %q instance %d: activate: %v", node.Name, i, err)
			}
		}
	}

	return n, nil
}

// preWireInstances connects every audio port of every instance to the
// shared SILENCE/DISCARD scratch buffers and every control port to its
// node-resident scalar cell, so a plugin sees valid pointers even before
// P5 links anything in (spec.md §4.2 P3). Descriptors advertising
// SUPPORTS_NULL_DATA are wired with nil instead.
func preWireInstances(node *core.Node, blockSize int) {
	connect := node.Descriptor.Funcs.ConnectPort
	if connect == nil {
		return
	}
	nullData := node.Descriptor.SupportsNullData

	for _, p := range node.Ports[core.AudioIn] {
		var conn core.PortConnection
		if !nullData {
			conn = core.Silence(blockSize)
		}
		for _, inst := range node.Instances {
			connect(inst, p.DescIndex, conn)
		}
	}
	for _, p := range node.Ports[core.AudioOut] {
		var conn core.PortConnection
		if !nullData {
			conn = core.Discard(blockSize)
		}
		for _, inst := range node.Instances {
			connect(inst, p.DescIndex, conn)
		}
	}
	for _, p := range node.Ports[core.ControlIn] {
		for i, inst := range node.Instances {
			connect(inst, p.DescIndex, &p.Control[i])
		}
	}
	for _, p := range node.Ports[core.ControlOut] {
		for i, inst := range node.Instances {
			connect(inst, p.DescIndex, &p.Control[i])
		}
	}
}

// exposePorts is P4: build the input and output mux tables, binding
// either the default first/last node's ports in order or the explicit
// PortRef lists, rejecting double exposure or an already-linked port
// (spec.md §4.2 P4).
func (c *Compiler) exposePorts(g *core.Graph, spec *GraphSpec, n int) error {
	firstNode := g.FirstNode()
	lastNode := g.LastNode()

	inputMux, err := buildMux(g, spec.Inputs, core.AudioIn, firstNode, n)
	if err != nil {
		return err
	}
	outputMux, err := buildMux(g, spec.Outputs, core.AudioOut, lastNode, n)
	if err != nil {
		return err
	}

	g.InputMux = inputMux
	g.OutputMux = outputMux
	return nil
}

// buildMux expands one side's port list (explicit refs, or every port of
// defaultNode in order if refs is empty) across n instances each,
// producing a flat table of length len(ports)*n.
func buildMux(g *core.Graph, refs []*string, kind core.PortKind, defaultNode *core.Node, n int) ([]*core.MuxEntry, error) {
	type slot struct {
		port *core.Port // nil means a dropped channel
	}

	var slots []slot
	if len(refs) == 0 {
		for _, p := range defaultNode.Ports[kind] {
			if p.IsLinked() || p.IsExternal() {
				return nil, core.NewConfigError("IN_USE", "%s port on node %q is already linked or exposed", kind, defaultNode.Name)
			}
			p.External = p.IndexInKind
			slots = append(slots, slot{port: p})
		}
	} else {
		for k, ref := range refs {
			if ref == nil {
				slots = append(slots, slot{port: nil})
				continue
			}
			p, err := resolvePortRef(g, *ref, kind, defaultNode)
			if err != nil {
				return nil, err
			}
			if p.IsLinked() || p.IsExternal() {
				return nil, core.NewConfigError("IN_USE", "%s port %q is already linked or exposed", kind, *ref)
			}
			p.External = k
			slots = append(slots, slot{port: p})
		}
	}

	// Channels are numbered instance-outer, port-inner: channel i*len(slots)+k
	// is instance i's k-th exposed port. This is the PortRef list order
	// (or descriptor port order) repeated once per instance, matching how
	// an interleaved multi-instance capture/playback stream is laid out.
	table := make([]*core.MuxEntry, len(slots)*n)
	for k, s := range slots {
		for i := 0; i < n; i++ {
			channel := i*len(slots) + k
			if s.port == nil {
				table[channel] = nil
				continue
			}
			table[channel] = &core.MuxEntry{
				Descriptor: s.port.Node.Descriptor,
				Instance:   s.port.Node.Instances[i],
				PortIndex:  s.port.DescIndex,
			}
		}
	}
	return table, nil
}

// schedule is P5: Kahn's algorithm over the node DAG, wiring every link's
// buffer pointers and building the flat execution schedule and control-
// port table as nodes become ready (spec.md §4.2 P5).
func (c *Compiler) schedule(g *core.Graph, blockSize int) error {
	remaining := len(g.Nodes)
	for remaining > 0 {
		node := nextReady(g.Nodes)
		if node == nil {
			return core.NewConfigError("CYCLIC_GRAPH", "graph contains a cycle among %d unscheduled node(s)", remaining)
		}

		wireInputs(node)

		n := node.InstanceCount()
		for i := 0; i < n; i++ {
			g.Schedule = append(g.Schedule, core.ScheduleEntry{
				Instance:   node.Instances[i],
				Descriptor: node.Descriptor,
			})
		}

		wireOutputs(node, blockSize)
		g.ControlPorts = append(g.ControlPorts, node.Ports[core.ControlIn]...)

		node.Visited = true
		remaining--
	}
	return nil
}

// nextReady returns the first not-yet-visited node with InDegree == 0, in
// insertion order (the tie-break spec.md §4.2 P5 specifies), or nil if
// none remain.
func nextReady(nodes []*core.Node) *core.Node {
	for _, n := range nodes {
		if !n.Visited && n.InDegree == 0 {
			return n
		}
	}
	return nil
}

// wireInputs connects every incoming link's instance i to peer output
// buffer i, for every audio-in port of node.
func wireInputs(node *core.Node) {
	connect := node.Descriptor.Funcs.ConnectPort
	for _, p := range node.Ports[core.AudioIn] {
		for _, link := range p.Links {
			peer := link.Output
			for i, inst := range node.Instances {
				connect(inst, p.DescIndex, peer.Buffers[i])
			}
		}
	}
}

// wireOutputs allocates each audio-out port's per-instance buffer (if not
// already present), connects every instance to it, and discharges one
// unit of in-degree on every downstream node for each outgoing link.
func wireOutputs(node *core.Node, blockSize int) {
	connect := node.Descriptor.Funcs.ConnectPort
	n := node.InstanceCount()
	for _, p := range node.Ports[core.AudioOut] {
		bufs := p.EnsureBuffers(n, blockSize)
		for i, inst := range node.Instances {
			connect(inst, p.DescIndex, bufs[i])
		}
		for _, link := range p.Links {
			link.Input.Node.InDegree--
		}
	}
}

