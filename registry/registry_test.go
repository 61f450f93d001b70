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

package registry

import (
	"fmt"
	"testing"

	"github.com/soundmesh/fxgraph/core"
)

type fakeLoader struct {
	opens int
	fail  bool
}

func (f *fakeLoader) Type() core.PluginType { return "fake" }

func (f *fakeLoader) Open(path string) (core.Library, error) {
	f.opens++
	if f.fail {
		return nil, fmt.Errorf("boom")
	}
	return "lib:" + path, nil
}

func (f *fakeLoader) MakeDescriptor(lib core.Library, label string, sampleRate float64) ([]core.PortSpec, core.DescriptorFuncs, bool, error) {
	if label != "known" {
		return nil, core.DescriptorFuncs{}, false, fmt.Errorf("no such label")
	}
	return []core.PortSpec{{Name: "In", Kind: core.AudioIn}}, core.DescriptorFuncs{}, false, nil
}

func TestLoadCachesByTypeAndPath(t *testing.T) {
	loader := &fakeLoader{}
	r := New(48000)
	r.RegisterLoader(loader)

	p1, err := r.Load("fake", "/x.so")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p2, err := r.Load("fake", "/x.so")
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if p1 != p2 {
		t.Fatal("expected second Load() to return the cached Plugin")
	}
	if loader.opens != 1 {
		t.Fatalf("Open() called %d times, want 1 (second Load should be a cache hit)", loader.opens)
	}
}

func TestLoadUnsupportedType(t *testing.T) {
	r := New(48000)
	_, err := r.Load("nope", "/x.so")
	if !core.IsLoadError(err, "UNSUPPORTED_TYPE") {
		t.Fatalf("Load() error = %v, want UNSUPPORTED_TYPE", err)
	}
}

func TestDescriptorSharesAcrossSameLabel(t *testing.T) {
	loader := &fakeLoader{}
	r := New(48000)
	r.RegisterLoader(loader)

	p, err := r.Load("fake", "/x.so")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d1, err := r.Descriptor(p, "known")
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}
	d2, err := r.Descriptor(p, "known")
	if err != nil {
		t.Fatalf("second Descriptor() error = %v", err)
	}
	if d1 != d2 {
		t.Fatal("expected the same label to return the cached Descriptor")
	}

	if _, err := r.Descriptor(p, "missing"); !core.IsLoadError(err, "NOT_FOUND") {
		t.Fatalf("Descriptor() for missing label error = %v, want NOT_FOUND", err)
	}
}

func TestLoadFailureIsNegativelyCached(t *testing.T) {
	loader := &fakeLoader{fail: true}
	r := New(48000)
	r.RegisterLoader(loader)

	if _, err := r.Load("fake", "/missing.so"); !core.IsLoadError(err, "LOAD_FAILED") {
		t.Fatalf("Load() error = %v, want LOAD_FAILED", err)
	}
	if _, err := r.Load("fake", "/missing.so"); !core.IsLoadError(err, "NOT_FOUND") {
		t.Fatalf("second Load() error = %v, want the negative-cache NOT_FOUND", err)
	}
	if loader.opens != 1 {
		t.Fatalf("Open() called %d times, want 1 (negative cache should skip the retry)", loader.opens)
	}
}

func TestReleasingDescriptorAndPluginEvictsCachedPlugin(t *testing.T) {
	loader := &fakeLoader{}
	r := New(48000)
	r.RegisterLoader(loader)

	p, _ := r.Load("fake", "/x.so")
	d, _ := r.Descriptor(p, "known")

	r.ReleaseDescriptor(d)
	r.ReleasePlugin(p)

	if !p.Freed() {
		t.Fatal("expected plugin to be freed once its only descriptor and load ref are released")
	}

	// Loading again must not be served from the (now evicted) cache.
	p2, err := r.Load("fake", "/x.so")
	if err != nil {
		t.Fatalf("Load() after release error = %v", err)
	}
	if p2 == p {
		t.Fatal("expected a fresh Plugin after the cached one was freed")
	}
	if loader.opens != 2 {
		t.Fatalf("Open() called %d times, want 2", loader.opens)
	}
}
