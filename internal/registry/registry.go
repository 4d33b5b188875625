// Package registry receives siteconfig registrations on behalf of the host.
package registry

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// Entry is one passthrough source directory and its destination under the output root.
type Entry struct {
	Source string
	Dest   string
}

// Counts summarizes how many registration calls were received.
type Counts struct {
	PassthroughCalls int
	PassthroughPairs int
	WatchTargets     int
	GlobalData       int
}

// Registry implements siteconfig.Handle. It performs no validation; existence
// of directories is checked by the components that use them.
type Registry struct {
	mu               sync.RWMutex
	passthrough      map[string]string
	passthroughCalls int
	watch            []string
	data             map[string]any
}

var _ siteconfig.Handle = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		passthrough: make(map[string]string),
		data:        make(map[string]any),
	}
}

// FromConfiguration returns a registry with cfg's commands applied.
func FromConfiguration(cfg siteconfig.Configuration) *Registry {
	r := New()
	siteconfig.Apply(cfg.Commands(), r)
	return r
}

// AddPassthroughCopy merges mapping; a later registration of the same source wins.
func (r *Registry) AddPassthroughCopy(mapping map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passthroughCalls++
	for src, dst := range mapping {
		r.passthrough[src] = dst
	}
}

// AddWatchTarget appends name. Duplicates are kept.
func (r *Registry) AddWatchTarget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watch = append(r.watch, name)
}

// AddGlobalData stores value under key, replacing any previous value.
func (r *Registry) AddGlobalData(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

// Passthrough returns the merged passthrough entries sorted by source.
func (r *Registry) Passthrough() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.passthrough))
	for src, dst := range r.passthrough {
		out = append(out, Entry{Source: src, Dest: dst})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// PassthroughSources returns the registered source directories, sorted.
func (r *Registry) PassthroughSources() []string {
	entries := r.Passthrough()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Source
	}
	return out
}

// WatchTargets returns the watch targets in registration order.
func (r *Registry) WatchTargets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.watch))
	copy(out, r.watch)
	return out
}

// GlobalData returns the value registered under key.
func (r *Registry) GlobalData(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok
}

// GlobalDataKeys returns the registered global data keys, sorted.
func (r *Registry) GlobalDataKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComputedPermalink returns the registered computed permalink function, or nil.
func (r *Registry) ComputedPermalink() siteconfig.ComputedFunc {
	v, ok := r.GlobalData(siteconfig.ComputedDataKey)
	if !ok {
		return nil
	}
	computed, ok := v.(siteconfig.Computed)
	if !ok {
		return nil
	}
	return computed[siteconfig.PermalinkKey]
}

// Counts reports registration totals.
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Counts{
		PassthroughCalls: r.passthroughCalls,
		PassthroughPairs: len(r.passthrough),
		WatchTargets:     len(r.watch),
		GlobalData:       len(r.data),
	}
}
