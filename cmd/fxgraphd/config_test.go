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
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fxgraphd.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestReadConfigParsesInlineGraph(t *testing.T) {
	path := writeTempConfig(t, `
samplerate: 48000
channels_capture: 2
channels_playback: 2
blocksize: 128
searchpaths:
  ladspa:
    - /usr/lib/ladspa
graph:
  nodes:
    - type: builtin
      name: n1
      label: copy
metrics:
  address: ":9090"
control:
  websocket:
    address: ":8080"
`)

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("SampleRate = %v, want 48000", cfg.SampleRate)
	}
	if cfg.ChannelsCapture != 2 || cfg.ChannelsPlayback != 2 {
		t.Fatalf("channels = %d/%d, want 2/2", cfg.ChannelsCapture, cfg.ChannelsPlayback)
	}
	if cfg.BlockSize != 128 {
		t.Fatalf("BlockSize = %d, want 128", cfg.BlockSize)
	}
	if len(cfg.SearchPaths.LADSPA) != 1 || cfg.SearchPaths.LADSPA[0] != "/usr/lib/ladspa" {
		t.Fatalf("SearchPaths.LADSPA = %v", cfg.SearchPaths.LADSPA)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Fatalf("Metrics.Address = %q, want \":9090\"", cfg.Metrics.Address)
	}
	if cfg.Control.WebSocket == nil || cfg.Control.WebSocket.Address != ":8080" {
		t.Fatalf("Control.WebSocket = %+v", cfg.Control.WebSocket)
	}

	spec, err := cfg.GraphSpec()
	if err != nil {
		t.Fatalf("GraphSpec() error = %v", err)
	}
	if len(spec.Nodes) != 1 || spec.Nodes[0].Name != "n1" {
		t.Fatalf("GraphSpec().Nodes = %+v", spec.Nodes)
	}
}

func TestReadConfigDefaultsBlockSize(t *testing.T) {
	path := writeTempConfig(t, `
samplerate: 44100
channels_capture: 1
channels_playback: 1
graph:
  nodes:
    - type: builtin
      name: n1
      label: copy
`)

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.BlockSize != 256 {
		t.Fatalf("BlockSize = %d, want default 256", cfg.BlockSize)
	}
}

func TestReadConfigRejectsMissingFile(t *testing.T) {
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("ReadConfig() error = nil, want error for missing file")
	}
}

func TestGraphSpecErrorsWithoutGraphOrPath(t *testing.T) {
	cfg := &HostConfig{SampleRate: 48000, ChannelsCapture: 1, ChannelsPlayback: 1}
	if _, err := cfg.GraphSpec(); err == nil {
		t.Fatal("GraphSpec() error = nil, want error when neither graph_path nor graph is set")
	}
}
