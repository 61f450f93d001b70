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

import "sync"

// SILENCE and DISCARD (spec.md §3, §5, GLOSSARY) are process-wide scratch
// buffers: unless its descriptor advertises null-data support (those
// ports are wired to nil instead), every audio-in port not fed by a link
// or external mux entry reads SILENCE, and every audio-out port not fed
// into anything writes to DISCARD, so the hot path never has to branch on "is this port
// connected" and never allocates to satisfy an unwired port.
var (
	scratchMu sync.Mutex
	silence   []float32
	discard   []float32
)

// EnsureScratch grows the shared SILENCE/DISCARD buffers to at least n
// frames. Called once per compile on the control thread; never called
// from the audio thread.
func EnsureScratch(n int) {
	scratchMu.Lock()
	defer scratchMu.Unlock()
	if len(silence) < n {
		silence = make([]float32, n)
	}
	if len(discard) < n {
		discard = make([]float32, n)
	}
}

// Silence returns the shared zero buffer, sized to at least n frames by
// the most recent EnsureScratch call.
func Silence(n int) []float32 {
	return silence[:n]
}

// Discard returns the shared scratch write buffer, sized to at least n
// frames by the most recent EnsureScratch call. Its contents are
// meaningless and may be overwritten by any unconnected output port.
func Discard(n int) []float32 {
	return discard[:n]
}
