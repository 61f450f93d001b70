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
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/soundmesh/fxgraph/core"
)

type pluginKey struct {
	kind core.PluginType
	path string
}

// Registry caches loaded plugin libraries by (type, path) and dispenses
// Descriptors (spec.md §4.1). All of its methods run on the control
// thread only.
type Registry struct {
	mu         sync.Mutex
	sampleRate float64
	loaders    map[core.PluginType]Loader
	plugins    map[pluginKey]*core.Plugin

	// notFound caches a NOT_FOUND/LOAD_FAILED result so repeated load()
	// calls for a missing plugin don't re-walk the search path every
	// time. fsnotify invalidates an entry when its search directory
	// changes, so installing a plugin file is picked up without
	// restarting the control thread (spec.md's no-hot-reload non-goal
	// only covers already-compiled graphs, not future load() calls).
	notFound   map[pluginKey]bool
	searchDirs map[core.PluginType][]string
	watcher    *fsnotify.Watcher
}

// New creates an empty registry at the given runtime sample rate.
func New(sampleRate float64) *Registry {
	return &Registry{
		sampleRate: sampleRate,
		loaders:    make(map[core.PluginType]Loader),
		plugins:    make(map[pluginKey]*core.Plugin),
		notFound:   make(map[pluginKey]bool),
		searchDirs: make(map[core.PluginType][]string),
	}
}

// RegisterLoader wires a format-specific Loader under its type tag.
func (r *Registry) RegisterLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[l.Type()] = l
}

// SetSearchPaths configures the directories Load searches for a bare
// plugin path (one not already absolute) of the given type.
func (r *Registry) SetSearchPaths(kind core.PluginType, dirs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchDirs[kind] = dirs
	if r.watcher != nil {
		for _, dir := range dirs {
			_ = r.watcher.Add(dir)
		}
	}
}

// WatchSearchPaths starts an fsnotify watcher over every configured search
// directory so that negative load() results are invalidated when a
// plugin file is installed. A second call while a watcher is running is
// a no-op; Close stops the watcher and ends its event loop.
func (r *Registry) WatchSearchPaths() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dirs := range r.searchDirs {
		for _, dir := range dirs {
			if err := w.Add(dir); err != nil {
				logrus.WithField("dir", dir).WithError(err).Warn("registry: could not watch plugin directory")
			}
		}
	}
	r.watcher = w
	go r.watchLoop(w)
	return nil
}

func (r *Registry) watchLoop(w *fsnotify.Watcher) {
	for event := range w.Events {
		if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
			continue
		}
		r.mu.Lock()
		for key := range r.notFound {
			delete(r.notFound, key)
		}
		r.mu.Unlock()
		logrus.WithField("event", event.String()).Debug("registry: plugin directory changed, negative cache cleared")
	}
}

// Close stops the fsnotify watcher, if one was started.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	r.watcher = nil
	return err
}

// Load resolves (kind, path) to a cached or freshly-loaded Plugin (spec.md
// §4.1). A cache hit bumps the refcount and returns the existing record.
func (r *Registry) Load(kind core.PluginType, path string) (*core.Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pluginKey{kind: kind, path: path}
	if p, ok := r.plugins[key]; ok {
		p.Ref()
		return p, nil
	}
	if r.notFound[key] {
		return nil, core.NewLoadError("NOT_FOUND", "plugin %s:%s previously failed to load", kind, path)
	}

	loader, ok := r.loaders[kind]
	if !ok {
		return nil, core.NewLoadError("UNSUPPORTED_TYPE", "no loader registered for type %q", kind)
	}

	resolved := r.resolve(kind, path)
	lib, err := loader.Open(resolved)
	if err != nil {
		r.notFound[key] = true
		return nil, core.NewLoadError("LOAD_FAILED", "loading %s:%s: %v", kind, resolved, err)
	}

	plugin := core.NewPlugin(kind, path, lib)
	r.plugins[key] = plugin
	return plugin, nil
}

func (r *Registry) resolve(kind core.PluginType, path string) string {
	if kind == core.PluginTypeBuiltin || path == "" {
		return path
	}
	if isAbsolutePath(path) {
		return path
	}
	for _, dir := range r.searchDirs[kind] {
		candidate := dir + "/" + path
		if fileExists(candidate) {
			return candidate
		}
	}
	return path
}

// Descriptor dispenses a Descriptor for (plugin, label), caching it on the
// plugin so repeated requests for the same label share one Descriptor
// (spec.md §4.1).
func (r *Registry) Descriptor(plugin *core.Plugin, label string) (*core.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := plugin.Descriptor(label); ok {
		d.Ref()
		return d, nil
	}

	loader, ok := r.loaders[plugin.Type]
	if !ok {
		return nil, core.NewLoadError("UNSUPPORTED_TYPE", "no loader registered for type %q", plugin.Type)
	}

	ports, funcs, supportsNull, err := loader.MakeDescriptor(plugin.Library, label, r.sampleRate)
	if err != nil {
		return nil, core.NewLoadError("NOT_FOUND", "plugin %s has no label %q: %v", plugin.Path, label, err)
	}

	return core.NewDescriptor(plugin, label, ports, funcs, supportsNull, r.sampleRate), nil
}

// ReleaseDescriptor decrements a descriptor's refcount. This is
// independent of the plugin's own refcount: a node holds one descriptor
// ref (from Descriptor) and one separate plugin ref (from Load), and
// must release both itself (spec.md §3's two-level refcounting).
func (r *Registry) ReleaseDescriptor(d *core.Descriptor) {
	if d == nil {
		return
	}
	d.Release()
}

// ReleasePlugin decrements a plugin's refcount and evicts it from the
// cache once core.Plugin.Freed() holds.
func (r *Registry) ReleasePlugin(p *core.Plugin) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !p.Release() {
		return
	}
	delete(r.plugins, pluginKey{kind: p.Type, path: p.Path})
}
