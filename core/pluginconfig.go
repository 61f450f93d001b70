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

import (
	"encoding/json"
	"fmt"

	"github.com/trivago/tgo"
	"github.com/trivago/tgo/tcontainer"
	"github.com/trivago/tgo/tlog"
)

// NodeConfig is the raw, opaque config sub-tree a NodeSpec's "config" key
// carries (spec.md §6). It is handed to a descriptor's Instantiate
// function verbatim via Node.Config; built-ins decode their own slice of
// it through a ConfigReader instead of a hand-rolled switch.
type NodeConfig struct {
	NodeName string
	Typename string
	Settings tcontainer.MarshalMap
}

// NewNodeConfig wraps a decoded settings map for one node.
func NewNodeConfig(nodeName, typename string, settings tcontainer.MarshalMap) NodeConfig {
	if settings == nil {
		settings = tcontainer.NewMarshalMap()
	}
	return NodeConfig{NodeName: nodeName, Typename: typename, Settings: settings}
}

// ConfigReader is the uniform way a built-in, loader or transport reads
// its slice of a NodeConfig, collecting type-coercion problems on a
// tgo.ErrorStack instead of panicking mid-compile — the same shape as
// gollum's PluginConfigReader, generalized from streams to graph nodes.
type ConfigReader struct {
	config NodeConfig
	Errors *tgo.ErrorStack
}

// NewConfigReader creates a reader over config.
func NewConfigReader(config NodeConfig) *ConfigReader {
	stack := tgo.NewErrorStack()
	return &ConfigReader{config: config, Errors: &stack}
}

// NewConfigReaderFromJSON rebuilds a ConfigReader from the JSON-encoded
// settings blob a descriptor's Instantiate receives as Node.Config — the
// same bytes materializeNodes produced from the original, YAML-decoded
// MarshalMap. This is the path a built-in uses to read its own config
// through the uniform getters instead of a hand-rolled json.Unmarshal
// into a private struct.
func NewConfigReaderFromJSON(config []byte) (*ConfigReader, error) {
	if len(config) == 0 {
		return NewConfigReader(NewNodeConfig("", "", nil)), nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(config, &raw); err != nil {
		return nil, fmt.Errorf("decoding node config: %w", err)
	}
	settings, _ := tcontainer.TryConvertToMarshalMap(raw, nil).(tcontainer.MarshalMap)
	return NewConfigReader(NewNodeConfig("", "", settings)), nil
}

// GetLogScope returns a log scope named after this node, for components
// that want per-node structured logging.
func (r *ConfigReader) GetLogScope() tlog.LogScope {
	return tlog.NewLogScope(fmt.Sprintf("%s(%s)", r.config.Typename, r.config.NodeName))
}

// HasValue reports whether key was set in the config blob.
func (r *ConfigReader) HasValue(key string) bool {
	_, exists := r.config.Settings[key]
	return exists
}

// GetString reads a string value, pushing a coercion error and returning
// defaultValue if key is absent or not a string.
func (r *ConfigReader) GetString(key, defaultValue string) string {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	str, ok := value.(string)
	if !ok {
		r.Errors.Push(fmt.Errorf("%q is expected to be a string", key))
		return defaultValue
	}
	return str
}

// GetFloat reads a float64 value, accepting int/float64 from the decoded
// config tree.
func (r *ConfigReader) GetFloat(key string, defaultValue float64) float64 {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		r.Errors.Push(fmt.Errorf("%q is expected to be a number", key))
		return defaultValue
	}
}

// GetInt reads an integer value.
func (r *ConfigReader) GetInt(key string, defaultValue int64) int64 {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	switch v := value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		r.Errors.Push(fmt.Errorf("%q is expected to be an integer", key))
		return defaultValue
	}
}

// GetBool reads a boolean value.
func (r *ConfigReader) GetBool(key string, defaultValue bool) bool {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	b, ok := value.(bool)
	if !ok {
		r.Errors.Push(fmt.Errorf("%q is expected to be a boolean", key))
		return defaultValue
	}
	return b
}

// GetStringArray reads a string array, also accepting a single bare
// string (promoted to a one-element array), matching the leniency of
// gollum's configReadStringArray.
func (r *ConfigReader) GetStringArray(key string, defaultValue []string) []string {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				r.Errors.Push(fmt.Errorf("an element of %q is expected to be a string", key))
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		r.Errors.Push(fmt.Errorf("%q is expected to be an array", key))
		return defaultValue
	}
}

// GetMap reads a nested settings map.
func (r *ConfigReader) GetMap(key string, defaultValue tcontainer.MarshalMap) tcontainer.MarshalMap {
	value, exists := r.config.Settings[key]
	if !exists {
		return defaultValue
	}
	m, ok := value.(tcontainer.MarshalMap)
	if !ok {
		r.Errors.Push(fmt.Errorf("%q is expected to be a map", key))
		return defaultValue
	}
	return m
}
