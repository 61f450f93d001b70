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

// Package core holds the data model shared by the registry, compiler,
// runtime and control packages: plugins, descriptors, ports, links, nodes
// and the graph itself (spec §3).
package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError signals a malformed graph description: unknown type tag,
// unknown port, a port linked twice, duplicate external exposure, or a
// cycle in the node DAG.
type ConfigError struct {
	Code string
	msg  string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.msg) }

// NewConfigError wraps a formatted message under a short machine-checkable
// code (e.g. "IN_USE", "CYCLIC_GRAPH"), the way spec.md quotes them.
func NewConfigError(code, format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Code: code, msg: fmt.Sprintf(format, args...)})
}

// LoadError signals a plugin library or descriptor could not be resolved:
// missing file, symbol resolution failure, or unknown label.
type LoadError struct {
	Code string
	msg  string
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.msg) }

// NewLoadError builds a LoadError with one of UNSUPPORTED_TYPE, NOT_FOUND,
// LOAD_FAILED.
func NewLoadError(code, format string, args ...interface{}) error {
	return errors.WithStack(&LoadError{Code: code, msg: fmt.Sprintf(format, args...)})
}

// CapacityError signals a replication factor or channel count exceeded the
// engine's limits.
type CapacityError struct {
	msg string
}

func (e *CapacityError) Error() string { return e.msg }

// NewCapacityError builds a CapacityError.
func NewCapacityError(format string, args ...interface{}) error {
	return errors.WithStack(&CapacityError{msg: fmt.Sprintf(format, args...)})
}

// ResourceError signals an allocation or instantiation failure on the
// control thread.
type ResourceError struct {
	msg string
}

func (e *ResourceError) Error() string { return e.msg }

// NewResourceError builds a ResourceError.
func NewResourceError(format string, args ...interface{}) error {
	return errors.WithStack(&ResourceError{msg: fmt.Sprintf(format, args...)})
}

// IsConfigError reports whether err (or its cause) is a *ConfigError with
// the given code. An empty code matches any ConfigError.
func IsConfigError(err error, code string) bool {
	var ce *ConfigError
	if !errors.As(err, &ce) {
		return false
	}
	return code == "" || ce.Code == code
}

// IsLoadError reports whether err (or its cause) is a *LoadError with the
// given code. An empty code matches any LoadError.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return code == "" || le.Code == code
}
