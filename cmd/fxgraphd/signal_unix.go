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

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signalType classifies an incoming OS signal for the run loop: exit
// drains and shuts down, roll re-runs the graph-reset operation
// (spec.md §5) without tearing anything down.
type signalType byte

const (
	signalNone signalType = iota
	signalExit
	signalRoll
)

func newSignalHandler() chan os.Signal {
	handler := make(chan os.Signal, 1)
	signal.Notify(handler, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	return handler
}

func translateSignal(sig os.Signal) signalType {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		return signalExit
	case syscall.SIGHUP:
		return signalRoll
	}
	return signalNone
}
