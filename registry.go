package restwire

import (
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry holds endpoint definitions and hands out their proxies.
// Proxies are stored in an EndpointDirectory and the transport clients they
// use are resolved from a ClientDirectory on every call.
type Registry struct {
	mu           sync.RWMutex
	defs         map[EndpointID]*Definition
	endpoints    *EndpointDirectory
	clients      *ClientDirectory
	interceptors []UnaryInterceptor
	logger       *slog.Logger
	group        singleflight.Group
}

// DefaultRegistry uses the process-wide Endpoints and Clients directories.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry backed by the process-wide directories.
func NewRegistry() *Registry {
	return &Registry{
		defs:      make(map[EndpointID]*Definition),
		endpoints: Endpoints,
		clients:   Clients,
	}
}

// WithEndpoints sets the directory proxies are stored in.
func (r *Registry) WithEndpoints(d *EndpointDirectory) *Registry {
	r.endpoints = d
	return r
}

// WithClients sets the directory transport clients are resolved from.
func (r *Registry) WithClients(d *ClientDirectory) *Registry {
	r.clients = d
	return r
}

// WithUnaryInterceptor adds a registry-wide interceptor.
// Registry interceptors run before definition interceptors; within each
// level, interceptors run in the order they were added.
func (r *Registry) WithUnaryInterceptor(i UnaryInterceptor) *Registry {
	r.interceptors = append(r.interceptors, i)
	return r
}

// WithLogger sets a custom logger for the registry.
// If not set, slog.Default() will be used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Endpoints returns the proxy directory.
func (r *Registry) Endpoints() *EndpointDirectory { return r.endpoints }

// Clients returns the client directory.
func (r *Registry) Clients() *ClientDirectory { return r.clients }

// Definition returns the definition declared for id.
func (r *Registry) Definition(id EndpointID) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// Definitions returns every declared definition ordered by ID.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defs := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	r.mu.RUnlock()
	sort.Slice(defs, func(i, j int) bool { return defs[i].id < defs[j].id })
	return defs
}

// lookupName resolves a definition by ID or by short name.
func (r *Registry) lookupName(name string) (*Definition, bool) {
	if d, ok := r.Definition(EndpointID(name)); ok {
		return d, true
	}
	for _, d := range r.Definitions() {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

func (r *Registry) add(d *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[d.id]; exists {
		r.log().Warn("duplicate endpoint declaration",
			slog.String("endpoint", string(d.id)))
	}
	r.defs[d.id] = d
}

// Provide returns the proxy of the endpoint type id, creating it on first
// use. Concurrent first requests construct exactly one proxy.
func (r *Registry) Provide(id EndpointID) (any, error) {
	if v, ok := r.endpoints.Get(id); ok {
		return v, nil
	}
	def, ok := r.Definition(id)
	if !ok {
		return nil, Errorf(KindMissingEndpointMetadata, "%s is not declared", id)
	}
	v, err, _ := r.group.Do(string(id), func() (any, error) {
		if v, ok := r.endpoints.Get(id); ok {
			return v, nil
		}
		return r.endpoints.Put(id, def.newProxy()), nil
	})
	return v, err
}

// Provide returns the proxy implementing the endpoint interface T.
func Provide[T any](r *Registry) (T, error) {
	var zero T
	v, err := r.Provide(IDOf[T]())
	if err != nil {
		return zero, err
	}
	p, ok := v.(T)
	if !ok {
		return zero, Errorf(KindInvocation, "proxy for %s is %T", IDOf[T](), v)
	}
	return p, nil
}

// MustProvide is like Provide but panics on error.
func MustProvide[T any](r *Registry) T {
	p, err := Provide[T](r)
	if err != nil {
		panic(err)
	}
	return p
}

// Option configures a Definition.
type Option func(*Definition)

// WithBuilder selects the request building strategy.
func WithBuilder(k BuilderKind) Option {
	return func(d *Definition) { d.builder = k }
}

// WithHeaderPolicy selects whether RESTful requests build headers.
func WithHeaderPolicy(p HeaderPolicy) Option {
	return func(d *Definition) { d.headerPolicy = p }
}

// WithCodec sets the codecs used for request bodies and structured
// responses. The first codec is the default.
func WithCodec(codecs ...Codec) Option {
	return func(d *Definition) {
		if len(codecs) > 0 {
			d.codecs = append(codecSet(nil), codecs...)
		}
	}
}

// WithEndpoint replaces the declared endpoint metadata, for example to
// point a generated definition at a test server.
func WithEndpoint(ep *Endpoint) Option {
	return func(d *Definition) { d.endpoint = ep }
}

// WithName sets the short name used in configuration files.
func WithName(name string) Option {
	return func(d *Definition) { d.name = name }
}

// WithInterceptor adds an interceptor for this endpoint only.
func WithInterceptor(i UnaryInterceptor) Option {
	return func(d *Definition) { d.interceptors = append(d.interceptors, i) }
}

// Definition is the static description of one endpoint type: its declared
// metadata, request strategy, codecs and method table.
type Definition struct {
	id           EndpointID
	name         string
	iface        reflect.Type
	endpoint     *Endpoint
	registry     *Registry
	builder      BuilderKind
	headerPolicy HeaderPolicy
	codecs       codecSet
	interceptors []UnaryInterceptor
	construct    func(*Proxy) any
	descriptor   func() (*EndpointDescriptor, error)

	mu      sync.RWMutex
	methods map[string]*Method
}

// Define declares the endpoint interface T. construct wraps the generic
// proxy in a type implementing T; it is called once per directory.
func Define[T any](r *Registry, endpoint *Endpoint, construct func(*Proxy) T, opts ...Option) *Definition {
	t := TypeOf[T]()
	d := newDefinition(r, idOfType(t), endpoint, opts)
	d.iface = t
	if d.name == "" {
		d.name = t.Name()
	}
	d.construct = func(p *Proxy) any { return construct(p) }
	r.add(d)
	return d
}

// Declare declares an endpoint without a Go interface. Its proxy is the
// *Proxy itself, called by method name.
func Declare(r *Registry, id EndpointID, endpoint *Endpoint, opts ...Option) *Definition {
	d := newDefinition(r, id, endpoint, opts)
	if d.name == "" {
		d.name = string(id)
	}
	d.construct = func(p *Proxy) any { return p }
	r.add(d)
	return d
}

func newDefinition(r *Registry, id EndpointID, endpoint *Endpoint, opts []Option) *Definition {
	d := &Definition{
		id:       id,
		endpoint: endpoint,
		registry: r,
		codecs:   codecSet{JSONCodec{}, MsgpackCodec{}},
		methods:  make(map[string]*Method),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.descriptor = sync.OnceValues(func() (*EndpointDescriptor, error) {
		return Validate(d.id, d.endpoint)
	})
	return d
}

// Register adds the method descriptor m under name. Registering a name
// twice replaces the earlier descriptor.
func (d *Definition) Register(name string, m *Method) *Definition {
	m = m.clone(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.methods[name]; exists {
		d.registry.log().Warn("duplicate method registration",
			slog.String("endpoint", string(d.id)),
			slog.String("method", name))
	}
	d.methods[name] = m
	return d
}

// ID returns the endpoint type identifier.
func (d *Definition) ID() EndpointID { return d.id }

// Name returns the short name of the endpoint.
func (d *Definition) Name() string { return d.name }

// Builder returns the request building strategy.
func (d *Definition) Builder() BuilderKind { return d.builder }

// HeaderPolicy returns the header policy.
func (d *Definition) HeaderPolicy() HeaderPolicy { return d.headerPolicy }

// Descriptor validates the declared endpoint once and returns the result.
func (d *Definition) Descriptor() (*EndpointDescriptor, error) {
	return d.descriptor()
}

// Method returns the descriptor registered under name.
func (d *Definition) Method(name string) (*Method, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.methods[name]
	return m, ok
}

// Methods returns the registered method names in sorted order.
func (d *Definition) Methods() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	d.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (d *Definition) buildsHeaders() bool {
	return d.builder == Basic || d.headerPolicy == InheritHeaders
}

func (d *Definition) requestCodec() Codec {
	return d.codecs[0]
}

func (d *Definition) newProxy() any {
	return d.construct(&Proxy{def: d})
}
