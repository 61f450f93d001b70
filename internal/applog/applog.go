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

// Package applog is the host binary's logging setup: a prefixed
// console formatter for terminals, JSON for everything else, and a
// buffering hook (HookBuffer) that holds log entries until SetTarget
// names a writer, then flushes them there.
package applog

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// NewConsoleFormatter matches the prefixed, color-scheme formatting a
// terminal-attached host should show.
func NewConsoleFormatter() *prefixed.TextFormatter {
	f := &prefixed.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		ForceFormatting: true,
		TimestampFormat: "2006-01-02 15:04:05 MST",
	}
	f.SetColorScheme(&prefixed.ColorScheme{
		PrefixStyle:     "blue+h",
		InfoLevelStyle:  "white+h",
		DebugLevelStyle: "cyan",
	})
	return f
}

// Configure sets logrus's formatter and level for the process: the
// prefixed console formatter when stderr is a terminal, JSON otherwise
// (for log aggregation), at the given verbosity (0 = Info, higher =
// more detail, capped at Debug).
func Configure(verbosity int) {
	if isTerminal(os.Stderr) {
		logrus.SetFormatter(NewConsoleFormatter())
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level := logrus.InfoLevel
	if verbosity > 0 {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// HookBuffer implements logrus.Hook: it pools log entries during
// startup, before the process knows where "final" logs should go (a
// control-bridge sink, a file, wherever), then relays everything once
// SetTarget is called. Mirrors the two-phase buffer-then-flush trick
// the teacher's Coordinator.Configure uses for its internal log stream.
type HookBuffer struct {
	target io.Writer
	buffer []*logrus.Entry
}

// NewHookBuffer returns an empty HookBuffer.
func NewHookBuffer() *HookBuffer {
	return &HookBuffer{}
}

// Levels reports this hook fires for every level.
func (b *HookBuffer) Levels() []logrus.Level { return logrus.AllLevels }

// Fire buffers entry if no target is set yet, otherwise relays it
// immediately.
func (b *HookBuffer) Fire(entry *logrus.Entry) error {
	if b.target == nil {
		b.buffer = append(b.buffer, entry)
		return nil
	}
	return b.relay(entry)
}

// SetTarget attaches the writer every buffered and future entry should
// go to, then flushes the buffer.
func (b *HookBuffer) SetTarget(w io.Writer) {
	b.target = w
	pending := b.buffer
	b.buffer = nil
	for _, entry := range pending {
		b.relay(entry)
	}
}

func (b *HookBuffer) relay(entry *logrus.Entry) error {
	serialized, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("applog: failed to format buffered entry: %w", err)
	}
	_, err = b.target.Write(serialized)
	return err
}
