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

// Package compiler turns a declarative graph description into an
// executable core.Graph (spec.md §4.2), in five phases.
package compiler

// NodeSpec is one entry of a GraphSpec's "nodes" array (spec.md §6):
// type, name, plugin, label, an opaque config sub-tree, and control
// value overrides applied during node materialization.
type NodeSpec struct {
	Type    string             `yaml:"type"`
	Name    string             `yaml:"name"`
	Plugin  string             `yaml:"plugin"`
	Label   string             `yaml:"label"`
	Config  interface{}        `yaml:"config"`
	Control map[string]float64 `yaml:"control"`
}

// LinkSpec is one entry of a GraphSpec's "links" array: an (output,
// input) pair of PortRefs (spec.md §4.2 P2).
type LinkSpec struct {
	Output string `yaml:"output"`
	Input  string `yaml:"input"`
}

// GraphSpec is the declarative graph description spec.md §4.2/§6
// describes: nodes (required), links (optional), and the external
// input/output PortRef lists (optional; a nil entry drops that channel).
type GraphSpec struct {
	Nodes   []NodeSpec `yaml:"nodes"`
	Links   []LinkSpec `yaml:"links"`
	Inputs  []*string  `yaml:"inputs"`
	Outputs []*string  `yaml:"outputs"`
}

// Warning is a non-fatal compile-time anomaly (spec.md §4.2 P1, P3):
// an unknown control name, or a forced replication factor.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string { return w.Code + ": " + w.Message }
