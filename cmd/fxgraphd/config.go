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
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/soundmesh/fxgraph/compiler"
)

// SearchPaths lists the plugin directories to search per format (spec.md
// §4.1; SPEC_FULL.md §4's "search path list, not single path").
type SearchPaths struct {
	LADSPA []string `yaml:"ladspa"`
	LV2    []string `yaml:"lv2"`
}

// MetricsConfig configures the Prometheus export server.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// WebSocketConfig configures the optional websocket control transport.
type WebSocketConfig struct {
	Address string `yaml:"address"`
}

// RedisConfig configures the optional Redis pub/sub control transport.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	InChannel  string `yaml:"inchannel"`
	OutChannel string `yaml:"outchannel"`
}

// KafkaConfig configures the optional append-only control audit sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ControlConfig lists which control transports to start. Any zero-value
// sub-config is left disabled.
type ControlConfig struct {
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Redis     *RedisConfig     `yaml:"redis"`
	Kafka     *KafkaConfig     `yaml:"kafka"`
}

// HostConfig is the single YAML document the host binary reads: stream
// endpoint parameters, plugin search paths, the graph description (local
// path, s3:// URI, or inline), metrics and control settings (SPEC_FULL.md
// §1.1).
type HostConfig struct {
	SampleRate       float64 `yaml:"samplerate"`
	ChannelsCapture  int     `yaml:"channels_capture"`
	ChannelsPlayback int     `yaml:"channels_playback"`
	BlockSize        int     `yaml:"blocksize"`

	SearchPaths SearchPaths `yaml:"searchpaths"`

	// GraphPath, if set, is a local path or "s3://..." URI loaded via
	// compiler.LoadDescription. Otherwise Graph is used directly, as an
	// inline nested YAML map (SPEC_FULL.md §1.1).
	GraphPath string              `yaml:"graph_path"`
	Graph     *compiler.GraphSpec `yaml:"graph"`

	Metrics MetricsConfig `yaml:"metrics"`
	Control ControlConfig `yaml:"control"`
}

// ReadConfig loads and parses a HostConfig from path, adapted from the
// teacher's core.ReadConfig: one YAML document, no environment
// overlays, no hot reload.
func ReadConfig(path string) (*HostConfig, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}

	cfg := &HostConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 256
	}
	return cfg, nil
}

// GraphSpec resolves this config's graph description, whether inline or
// referenced by GraphPath.
func (c *HostConfig) GraphSpec() (*compiler.GraphSpec, error) {
	if c.GraphPath != "" {
		return compiler.LoadDescription(c.GraphPath)
	}
	if c.Graph == nil {
		return nil, errors.New("config has neither \"graph_path\" nor an inline \"graph\"")
	}
	return c.Graph, nil
}
