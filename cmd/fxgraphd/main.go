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

// Command fxgraphd is the host binary: it reads a single YAML config,
// compiles a graph via the registry and compiler packages, starts the
// control transports and metrics server, then drives the graph with a
// block-clocked demo loop (SPEC_FULL.md §3) until asked to stop.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/soundmesh/fxgraph/internal/applog"
)

// version is set at build time via -ldflags "-X main.version=...". It
// stays "dev" for a plain `go build`.
var version = "dev"

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Println("fxgraphd", version)
		return
	}

	applog.Configure(*flagLogLevel)

	if *flagConfigFile == "" {
		logrus.Fatal("host: -config is required")
	}

	cfg, err := ReadConfig(*flagConfigFile)
	if err != nil {
		logrus.WithError(err).Fatal("host: failed to read configuration")
	}

	if *flagPidFile != "" {
		if err := writePidFile(*flagPidFile); err != nil {
			logrus.WithError(err).Fatal("host: failed to write pidfile")
		}
		defer os.Remove(*flagPidFile)
	}

	// automaxprocs runs once, before any audio thread exists, so
	// GOMAXPROCS matches the container's cgroup quota rather than the
	// host's full core count (SPEC_FULL.md §1.4).
	if _, err := maxprocs.Set(maxprocs.Logger(logrus.Debugf)); err != nil {
		logrus.WithError(err).Warning("host: automaxprocs could not adjust GOMAXPROCS")
	}
	if *flagNumCPU > 0 {
		runtime.GOMAXPROCS(*flagNumCPU)
	}

	h, err := newHost(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("host: failed to configure graph")
	}
	defer h.shutdown()

	h.run()
}

func writePidFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}
