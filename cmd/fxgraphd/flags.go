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

package main

import "flag"

// No third-party flag-parsing library travels with the retrieval pack
// (the teacher uses docker/pkg/mflag, which go.mod never wires and
// which nothing else in SPEC_FULL.md's domain stack needs); the
// standard library's flag package is the only candidate for this one
// ambient concern, so this stays stdlib rather than adding a dependency
// with no other home (DESIGN.md records this choice).
var (
	flagConfigFile = flag.String("config", "", "Path to the host configuration file.")
	flagLogLevel   = flag.Int("loglevel", 0, "Set the log verbosity [0-1]. Higher produces more detail.")
	flagNumCPU     = flag.Int("numcpu", 0, "Number of CPUs to use. 0 uses the automaxprocs-adjusted default.")
	flagPidFile    = flag.String("pidfile", "", "Write the process id into the given file.")
	flagVersion    = flag.Bool("version", false, "Print version information and quit.")
)
