package restwire

import (
	"log/slog"
	"sync"
)

// ClientDirectory binds endpoint types to transport clients. Endpoint types
// without an explicit binding share the default client.
//
// Post and Delete shut down the displaced client before they return and
// before the lock is released, so no caller can obtain a client from the
// directory once it is being disposed.
type ClientDirectory struct {
	mu      sync.RWMutex
	def     *Client
	entries map[EndpointID]*Client
	logger  *slog.Logger
}

// NewClientDirectory creates a directory whose default client comes from
// factory. A nil factory uses DefaultClientFactory.
func NewClientDirectory(factory ClientFactory) *ClientDirectory {
	if factory == nil {
		factory = DefaultClientFactory
	}
	return &ClientDirectory{
		def:     factory.NewDefaultClient(),
		entries: make(map[EndpointID]*Client),
	}
}

// WithLogger sets the logger used for lifecycle events.
func (d *ClientDirectory) WithLogger(logger *slog.Logger) *ClientDirectory {
	d.mu.Lock()
	d.logger = logger
	d.mu.Unlock()
	return d
}

func (d *ClientDirectory) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}

// Default returns the default client.
func (d *ClientDirectory) Default() *Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.def
}

// SetDefault replaces the default client and shuts down the previous one
// unless it is still bound to an endpoint type.
func (d *ClientDirectory) SetDefault(c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.def
	d.def = c
	if prev != c && !d.boundLocked(prev) {
		d.shutdownLocked("default", prev)
	}
}

// Put binds c to key unless a client is already bound, and returns the
// client bound after the call. A losing c is left untouched.
func (d *ClientDirectory) Put(key EndpointID, c *Client) *Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.entries[key]; ok {
		return cur
	}
	d.entries[key] = c
	return c
}

// Post binds c to key and returns the previously bound client, which has
// been shut down unless it is the default client, c itself, or still bound
// to another endpoint type.
func (d *ClientDirectory) Post(key EndpointID, c *Client) (*Client, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok := d.entries[key]
	d.entries[key] = c
	if ok && prev != c {
		d.releaseLocked(key, prev)
	}
	return prev, ok
}

// Get returns the client bound to key, or the default client. It never
// returns nil.
func (d *ClientDirectory) Get(key EndpointID) *Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.entries[key]; ok {
		return c
	}
	return d.def
}

// Lookup returns the client explicitly bound to key.
func (d *ClientDirectory) Lookup(key EndpointID) (*Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.entries[key]
	return c, ok
}

// Delete unbinds key and returns the removed client, shut down unless it is
// the default client.
func (d *ClientDirectory) Delete(key EndpointID) (*Client, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok := d.entries[key]
	if !ok {
		return nil, false
	}
	delete(d.entries, key)
	d.releaseLocked(key, prev)
	return prev, true
}

// Close shuts down every bound client and the default client.
func (d *ClientDirectory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, c := range d.entries {
		d.shutdownLocked(string(key), c)
		delete(d.entries, key)
	}
	d.shutdownLocked("default", d.def)
}

// releaseLocked shuts down a displaced client unless something else in
// the directory still refers to it.
func (d *ClientDirectory) releaseLocked(key EndpointID, c *Client) {
	if c == nil || c == d.def || d.boundLocked(c) {
		return
	}
	d.shutdownLocked(string(key), c)
}

func (d *ClientDirectory) boundLocked(c *Client) bool {
	for _, bound := range d.entries {
		if bound == c {
			return true
		}
	}
	return false
}

func (d *ClientDirectory) shutdownLocked(key string, c *Client) {
	if c == nil || c.IsShutdown() {
		return
	}
	c.Shutdown()
	d.log().Debug("transport client shut down", slog.String("endpoint", key))
}

// Clients is the process-wide client directory used by DefaultRegistry.
var Clients = NewClientDirectory(nil)
