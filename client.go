package restwire

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout is the request timeout of clients created without one.
const DefaultTimeout = 30 * time.Second

// TLSConfig configures TLS for a client.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CertFile           string `yaml:"cert_file" validate:"required_with=KeyFile"`
	KeyFile            string `yaml:"key_file" validate:"required_with=CertFile"`
	CAFile             string `yaml:"ca_file"`
}

// ClientConfig configures a transport client.
type ClientConfig struct {
	Timeout             time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxIdleConns        int           `yaml:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" validate:"gte=0"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout" validate:"gte=0"`
	TLS                 *TLSConfig    `yaml:"tls"`
}

// Client performs the network I/O of the endpoints bound to it. After
// Shutdown every request fails with ErrClientClosed.
type Client struct {
	hc     *http.Client
	closed atomic.Bool
	once   sync.Once
}

// NewClient builds a client with its own connection pool.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.IdleConnTimeout
	}
	if cfg.TLS != nil {
		tlsCfg, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return WrapClient(&http.Client{
		Timeout:   timeout,
		Transport: transport,
	}), nil
}

// WrapClient binds an existing *http.Client. The wrapped client's transport
// is guarded so that requests after Shutdown fail instead of reaching it.
func WrapClient(hc *http.Client) *Client {
	c := &Client{}
	inner := hc.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &guardedTransport{client: c, inner: inner}
	c.hc = &wrapped
	return c
}

func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Do sends req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.hc.Do(req)
}

// Shutdown marks the client closed and releases its idle connections.
// It is safe to call more than once.
func (c *Client) Shutdown() {
	c.once.Do(func() {
		c.closed.Store(true)
		c.hc.CloseIdleConnections()
	})
}

// IsShutdown reports whether Shutdown has been called.
func (c *Client) IsShutdown() bool {
	return c.closed.Load()
}

// guardedTransport refuses round trips once its client is shut down. This
// also catches redirects issued by a request that started before Shutdown.
type guardedTransport struct {
	client *Client
	inner  http.RoundTripper
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.client.closed.Load() {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, ErrClientClosed
	}
	return t.inner.RoundTrip(req)
}

func (t *guardedTransport) CloseIdleConnections() {
	if ci, ok := t.inner.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

// ClientFactory creates the default client of a ClientDirectory.
type ClientFactory interface {
	NewDefaultClient() *Client
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func() *Client

func (f ClientFactoryFunc) NewDefaultClient() *Client { return f() }

// DefaultClientFactory creates clients with a zero ClientConfig.
var DefaultClientFactory ClientFactory = ClientFactoryFunc(func() *Client {
	c, err := NewClient(ClientConfig{})
	if err != nil {
		// A zero config always validates.
		panic(err)
	}
	return c
})
