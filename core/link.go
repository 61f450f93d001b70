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

// Link is a directed edge between an output audio port and an input audio
// port. It appears in the owning Graph's link list and, intrusively, in
// both endpoints' per-port link lists (spec.md §3, §9).
type Link struct {
	Output *Port
	Input  *Port
}

// NewLink connects output to input, registering itself in both endpoints'
// link lists and incrementing the input's owning node's in-degree. Callers
// (the compiler) are responsible for validating that input.LinkCount() was
// zero beforehand (IN_USE otherwise) and that both ports are audio ports.
func NewLink(output, input *Port) *Link {
	l := &Link{Output: output, Input: input}
	output.addLink(l)
	input.addLink(l)
	input.Node.InDegree++
	return l
}

// Remove detaches this link from both endpoints and decrements the
// target node's in-degree. Must happen before either endpoint's owning
// node is freed (spec.md §3 lifetime note).
func (l *Link) Remove() {
	removeLink(&l.Output.Links, l)
	removeLink(&l.Input.Links, l)
	l.Input.Node.InDegree--
}

func removeLink(links *[]*Link, target *Link) {
	for i, l := range *links {
		if l == target {
			*links = append((*links)[:i], (*links)[i+1:]...)
			return
		}
	}
}
