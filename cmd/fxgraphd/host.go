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

import (
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/fxgraph/builtin"
	"github.com/soundmesh/fxgraph/compiler"
	"github.com/soundmesh/fxgraph/control"
	"github.com/soundmesh/fxgraph/core"
	"github.com/soundmesh/fxgraph/registry"
	"github.com/soundmesh/fxgraph/runtime"

	"github.com/soundmesh/fxgraph/internal/telemetry"
)

// hostState mirrors the teacher's Coordinator state machine
// (coordinatorStateConfigure..Stopped), trimmed to what a single
// compiled graph plus a demo block loop actually needs.
type hostState byte

const (
	hostStateConfigure hostState = iota
	hostStateRunning
	hostStateStopped
)

// host owns everything the process needs to run one compiled graph:
// the plugin registry, the compiled graph and its runtime, the control
// bridge and whichever transports the config enabled, and the metrics
// server. One host per process.
type host struct {
	state hostState
	cfg   *HostConfig

	registry *registry.Registry
	graph    *core.Graph
	rt       *runtime.Runtime
	bridge   *control.Bridge

	stopMetrics func()

	wsBridge  *control.WSBridge
	wsServer  *http.Server
	redis     *control.RedisBridge
	kafkaSink *control.KafkaSink
}

// newHost builds the registry, compiles the graph, and wires the
// runtime, control bridge and requested transports from cfg. Order
// matches the teacher's Configure: routers/producers/consumers become
// registry -> compile -> runtime -> control here.
func newHost(cfg *HostConfig) (*host, error) {
	h := &host{cfg: cfg, state: hostStateConfigure}

	spec, err := cfg.GraphSpec()
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg.SampleRate)
	reg.RegisterLoader(builtin.NewLoader())
	reg.RegisterLoader(registry.NewLADSPALoader())
	reg.RegisterLoader(registry.NewLV2Loader())
	reg.SetSearchPaths(core.PluginTypeLADSPA, cfg.SearchPaths.LADSPA)
	reg.SetSearchPaths(core.PluginTypeLV2, cfg.SearchPaths.LV2)
	if err := reg.WatchSearchPaths(); err != nil {
		logrus.WithError(err).Warning("host: could not watch plugin search paths, falling back to one-shot resolution")
	}
	h.registry = reg

	comp := compiler.New(reg)
	graph, warnings, err := comp.Compile(spec, compiler.Options{
		SampleRate:       cfg.SampleRate,
		ChannelsCapture:  cfg.ChannelsCapture,
		ChannelsPlayback: cfg.ChannelsPlayback,
		BlockSize:        cfg.BlockSize,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logrus.Warning("host: " + w.String())
	}
	h.graph = graph

	promReg := telemetry.NewRegistry()
	metrics := runtime.NewMetrics(promReg)
	h.rt = runtime.New(graph, metrics)
	h.stopMetrics = func() {}
	if cfg.Metrics.Address != "" {
		h.stopMetrics = telemetry.Serve(cfg.Metrics.Address, promReg)
	}

	h.bridge = control.New(graph)
	if err := h.startControlTransports(); err != nil {
		return nil, err
	}

	return h, nil
}

// startControlTransports builds the Kafka audit sink first (if
// configured) so the websocket and Redis transports can be handed the
// audited bridge instead of the plain one — otherwise every update
// delivered through them would bypass the audit trail entirely.
func (h *host) startControlTransports() error {
	cfg := h.cfg.Control

	var mutator control.Mutator = h.bridge
	if cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
		sink, err := control.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		h.kafkaSink = sink
		mutator = control.NewAuditedBridge(h.bridge, sink)
	}

	if cfg.WebSocket != nil && cfg.WebSocket.Address != "" {
		h.wsBridge = control.NewWSBridge(mutator)
		mux := http.NewServeMux()
		mux.Handle("/control", h.wsBridge)
		h.wsServer = &http.Server{Addr: cfg.WebSocket.Address, Handler: mux}
		go func() {
			if err := h.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Error("host: control websocket server stopped unexpectedly")
			}
		}()
	}

	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		h.redis = control.NewRedisBridge(mutator, control.RedisOptions{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			InChannel:  cfg.Redis.InChannel,
			OutChannel: cfg.Redis.OutChannel,
		})
		go h.redis.Run()
	}

	return nil
}

// run drives the block-clocked demo loop standing in for the real
// capture/playback transport (spec.md §1's non-goal; SPEC_FULL.md §3):
// a ticker fires once per block period, synthesizes a test tone as the
// capture buffers, and runs it through the compiled graph. SIGHUP
// triggers a graph-reset (spec.md §5); SIGINT/SIGTERM drain and return.
func (h *host) run() {
	h.state = hostStateRunning
	defer func() { h.state = hostStateStopped }()

	n := h.cfg.ChannelsCapture
	frames := h.cfg.BlockSize
	period := time.Duration(float64(frames) / h.cfg.SampleRate * float64(time.Second))
	if period <= 0 {
		period = time.Millisecond
	}

	capture := make([][]float32, n)
	playback := make([][]float32, h.cfg.ChannelsPlayback)
	for i := range capture {
		capture[i] = make([]float32, frames)
	}
	for i := range playback {
		playback[i] = make([]float32, frames)
	}

	sigs := newSignalHandler()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var blockIndex uint64
	logrus.Info("host: entering run loop")

	for {
		select {
		case <-ticker.C:
			fillTestTone(capture, blockIndex, frames, h.cfg.SampleRate)
			if err := h.rt.Process(runtime.Block{Capture: capture, Playback: playback, Frames: frames}); err != nil {
				logrus.WithError(err).Debug("host: block skipped")
			}
			blockIndex++

		case sig := <-sigs:
			switch translateSignal(sig) {
			case signalExit:
				logrus.Info("host: shutdown signal received")
				return
			case signalRoll:
				logrus.Info("host: reset signal received")
				if err := h.rt.Reset(); err != nil {
					logrus.WithError(err).Error("host: graph reset failed")
				}
			}
		}
	}
}

// fillTestTone synthesizes a 440Hz sine into every capture channel: the
// "demo loop standing in for the out-of-scope capture/playback
// transport" SPEC_FULL.md describes, so the host exercises the full
// compiled graph without a real audio device behind it.
func fillTestTone(capture [][]float32, blockIndex uint64, frames int, sampleRate float64) {
	const freq = 440.0
	start := float64(blockIndex) * float64(frames)
	for ch := range capture {
		for i := 0; i < frames; i++ {
			t := (start + float64(i)) / sampleRate
			capture[ch][i] = float32(0.25 * math.Sin(2*math.Pi*freq*t))
		}
	}
}

// shutdown tears the host down in reverse dependency order: transports,
// metrics, then the registry's own fsnotify watcher.
func (h *host) shutdown() {
	if h.wsServer != nil {
		_ = h.wsServer.Close()
	}
	if h.redis != nil {
		_ = h.redis.Close()
	}
	if h.kafkaSink != nil {
		_ = h.kafkaSink.Close()
	}
	h.stopMetrics()
	_ = h.registry.Close()
}
