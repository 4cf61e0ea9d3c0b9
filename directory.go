package restwire

import (
	"sort"
	"sync"
)

// Directory is a concurrency-safe registry holding at most one value per
// endpoint type.
type Directory[V any] struct {
	mu      sync.RWMutex
	entries map[EndpointID]V
}

// NewDirectory creates an empty directory.
func NewDirectory[V any]() *Directory[V] {
	return &Directory[V]{entries: make(map[EndpointID]V)}
}

// Put stores v under key unless a value is already present, and returns
// the value that is stored after the call. The first writer wins.
func (d *Directory[V]) Put(key EndpointID, v V) V {
	d.mu.RLock()
	cur, ok := d.entries[key]
	d.mu.RUnlock()
	if ok {
		return cur
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.entries[key]; ok {
		return cur
	}
	d.entries[key] = v
	return v
}

// Post stores v under key unconditionally and returns the value it replaced.
func (d *Directory[V]) Post(key EndpointID, v V) (prev V, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok = d.entries[key]
	d.entries[key] = v
	return prev, ok
}

// Get returns the value stored under key.
func (d *Directory[V]) Get(key EndpointID) (V, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.entries[key]
	return v, ok
}

// Delete removes key and returns the removed value.
func (d *Directory[V]) Delete(key EndpointID) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.entries[key]
	if ok {
		delete(d.entries, key)
	}
	return v, ok
}

// Len returns the number of entries.
func (d *Directory[V]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Keys returns the stored keys in sorted order.
func (d *Directory[V]) Keys() []EndpointID {
	d.mu.RLock()
	keys := make([]EndpointID, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// EndpointDirectory maps an endpoint type to its single proxy instance.
type EndpointDirectory = Directory[any]

// NewEndpointDirectory creates an empty proxy directory.
func NewEndpointDirectory() *EndpointDirectory {
	return NewDirectory[any]()
}

// Endpoints is the process-wide proxy directory used by DefaultRegistry.
var Endpoints = NewEndpointDirectory()
