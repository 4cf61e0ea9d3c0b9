package restwire

import (
	"io"
	"log/slog"
	"testing"

	"github.com/broady/restwire/testutil"
)

// newTestRegistry returns a registry with its own directories so tests do
// not share proxies or clients through the process-wide ones.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	clients := NewClientDirectory(nil)
	t.Cleanup(clients.Close)
	return NewRegistry().
		WithEndpoints(NewEndpointDirectory()).
		WithClients(clients).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// serverEndpoint declares srv with base path /api.
func serverEndpoint(srv *testutil.Server) *Endpoint {
	return &Endpoint{
		Scheme:   "http",
		Host:     srv.Host(),
		Port:     srv.Port(),
		BasePath: "/api",
	}
}

// proxyOf provides the untyped proxy of a declared definition.
func proxyOf(t *testing.T, reg *Registry, def *Definition) *Proxy {
	t.Helper()
	v, err := reg.Provide(def.ID())
	if err != nil {
		t.Fatalf("provide %s: %v", def.ID(), err)
	}
	p, ok := v.(*Proxy)
	if !ok {
		t.Fatalf("expected *Proxy, got %T", v)
	}
	return p
}
