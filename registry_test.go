package restwire

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/broady/restwire/testutil"
)

// Feeds is a typed endpoint interface used across the registry tests.
type Feeds interface {
	Feed(ctx context.Context, user string) (*feed, error)
	Ping(ctx context.Context) error
}

type feedsProxy struct{ p *Proxy }

func (f *feedsProxy) Feed(ctx context.Context, user string) (*feed, error) {
	return Result[*feed](f.p.Call(ctx, "Feed", user))
}

func (f *feedsProxy) Ping(ctx context.Context) error {
	_, err := f.p.Call(ctx, "Ping")
	return err
}

func defineFeeds(reg *Registry, ep *Endpoint, constructed *atomic.Int64, opts ...Option) *Definition {
	return Define(reg, ep, func(p *Proxy) Feeds {
		if constructed != nil {
			constructed.Add(1)
		}
		return &feedsProxy{p: p}
	}, opts...).
		Register("Feed", GET("/:user/feed").Params(PathParam("user")).Returns(TypeOf[*feed]())).
		Register("Ping", GET("/ping"))
}

func TestIDOf(t *testing.T) {
	if got := IDOf[Feeds](); got != "github.com/broady/restwire.Feeds" {
		t.Errorf("unexpected ID %s", got)
	}
	if got := IDOf[*feed](); got != "*restwire.feed" {
		t.Errorf("unexpected ID for unnamed type %s", got)
	}
}

func TestDefine(t *testing.T) {
	reg := newTestRegistry(t)
	def := defineFeeds(reg, &Endpoint{Scheme: "http", Host: "localhost", BasePath: "/api"}, nil)

	if def.ID() != IDOf[Feeds]() {
		t.Errorf("expected ID %s, got %s", IDOf[Feeds](), def.ID())
	}
	if def.Name() != "Feeds" {
		t.Errorf("expected short name Feeds, got %s", def.Name())
	}
	if got := strings.Join(def.Methods(), ","); got != "Feed,Ping" {
		t.Errorf("expected sorted methods, got %s", got)
	}
	m, ok := def.Method("Feed")
	if !ok || m.Name() != "Feed" || m.Path() != "/:user/feed" {
		t.Errorf("unexpected method %+v", m)
	}
	if got, ok := reg.Definition(def.ID()); !ok || got != def {
		t.Error("expected definition to be registered")
	}
}

func TestDefine_Options(t *testing.T) {
	reg := newTestRegistry(t)
	def := Declare(reg, "svc", nil,
		WithBuilder(RESTful),
		WithHeaderPolicy(SkipHeaders),
		WithName("short"),
		WithCodec(MsgpackCodec{}))

	if def.Builder() != RESTful || def.HeaderPolicy() != SkipHeaders {
		t.Errorf("unexpected builder/policy %s/%s", def.Builder(), def.HeaderPolicy())
	}
	if def.Name() != "short" {
		t.Errorf("expected short, got %s", def.Name())
	}
	if def.requestCodec().ContentType() != "application/msgpack" {
		t.Errorf("expected msgpack default codec, got %s", def.requestCodec().ContentType())
	}
	if d, ok := reg.lookupName("short"); !ok || d != def {
		t.Error("expected lookup by short name")
	}
}

func TestDefine_WithEndpointOverrides(t *testing.T) {
	reg := newTestRegistry(t)
	def := defineFeeds(reg, &Endpoint{Scheme: "http", Host: "prod.example.com", BasePath: "/api"}, nil,
		WithEndpoint(&Endpoint{Scheme: "http", Host: "127.0.0.1", Port: "9000", BasePath: "/v2"}))

	d, err := def.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != "http://127.0.0.1:9000/v2" {
		t.Errorf("expected overridden endpoint, got %s", got)
	}
}

func TestRegister_CopiesDescriptor(t *testing.T) {
	reg := newTestRegistry(t)
	m := GET("/x").Header("X-A", "1")
	def := Declare(reg, "svc", nil).Register("X", m)
	m.Header("X-B", "2")

	got, _ := def.Method("X")
	if n := len(got.StaticHeaders()); n != 1 {
		t.Errorf("expected registered descriptor to be independent, got %d headers", n)
	}
}

func TestRegistry_DuplicateDeclarationWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	reg := newTestRegistry(t).WithLogger(logger)

	Declare(reg, "svc", nil)
	second := Declare(reg, "svc", nil).Register("M", GET("/a")).Register("M", GET("/b"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "duplicate endpoint declaration") {
		t.Errorf("expected duplicate declaration warning, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "duplicate method registration") {
		t.Errorf("expected duplicate method warning, got: %s", logOutput)
	}
	if d, _ := reg.Definition("svc"); d != second {
		t.Error("expected later declaration to replace the earlier one")
	}
	if m, _ := second.Method("M"); m.Path() != "/b" {
		t.Errorf("expected later method to win, got %s", m.Path())
	}
}

func TestProvide_SingleInstance(t *testing.T) {
	reg := newTestRegistry(t)
	var constructed atomic.Int64
	defineFeeds(reg, &Endpoint{Scheme: "http", Host: "localhost", BasePath: "/"}, &constructed)

	a, err := Provide[Feeds](reg)
	if err != nil {
		t.Fatal(err)
	}
	b := MustProvide[Feeds](reg)
	if a != b {
		t.Error("expected the same proxy instance")
	}
	if constructed.Load() != 1 {
		t.Errorf("expected one construction, got %d", constructed.Load())
	}
	if reg.Endpoints().Len() != 1 {
		t.Errorf("expected one directory entry, got %d", reg.Endpoints().Len())
	}
}

func TestProvide_Concurrent(t *testing.T) {
	reg := newTestRegistry(t)
	var constructed atomic.Int64
	defineFeeds(reg, &Endpoint{Scheme: "http", Host: "localhost", BasePath: "/"}, &constructed)

	const n = 32
	results := make([]Feeds, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = MustProvide[Feeds](reg)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d received a different proxy", i)
		}
	}
	if constructed.Load() != 1 {
		t.Errorf("expected one construction, got %d", constructed.Load())
	}
}

func TestProvide_SharedDirectoryFirstWins(t *testing.T) {
	shared := NewEndpointDirectory()
	ep := &Endpoint{Scheme: "http", Host: "localhost", BasePath: "/"}

	r1 := newTestRegistry(t).WithEndpoints(shared)
	r2 := newTestRegistry(t).WithEndpoints(shared)
	defineFeeds(r1, ep, nil)
	defineFeeds(r2, ep, nil)

	if MustProvide[Feeds](r1) != MustProvide[Feeds](r2) {
		t.Error("expected registries sharing a directory to share the proxy")
	}
}

func TestProvide_Undeclared(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := Provide[Feeds](reg)
	if !IsKind(err, KindMissingEndpointMetadata) {
		t.Errorf("expected missing_endpoint_metadata, got %v", err)
	}
	if reg.Endpoints().Len() != 0 {
		t.Error("expected nothing to be stored")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected MustProvide to panic")
		}
	}()
	MustProvide[Feeds](reg)
}

func TestProvide_WrongType(t *testing.T) {
	reg := newTestRegistry(t)
	Declare(reg, IDOf[Feeds](), nil)

	if _, err := Provide[Feeds](reg); !IsKind(err, KindInvocation) {
		t.Errorf("expected invocation error for untyped proxy, got %v", err)
	}
}

func TestProvide_InvalidEndpointFailsOnCall(t *testing.T) {
	reg := newTestRegistry(t)
	defineFeeds(reg, &Endpoint{Scheme: "http", BasePath: "/"}, nil)

	f, err := Provide[Feeds](reg)
	if err != nil {
		t.Fatalf("expected proxy despite invalid endpoint, got %v", err)
	}
	if err := f.Ping(t.Context()); !IsKind(err, KindEndpointValidation) {
		t.Errorf("expected endpoint_validation, got %v", err)
	}
}

func TestDescriptor_ValidatedOnce(t *testing.T) {
	reg := newTestRegistry(t)
	ep := &Endpoint{Scheme: "http", Host: "first", BasePath: "/"}
	def := Declare(reg, "svc", ep)

	d1, err := def.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	ep.Host = "second"
	d2, _ := def.Descriptor()
	if d1 != d2 || d2.Host != "first" {
		t.Errorf("expected cached descriptor, got %v", d2)
	}
}

func TestTypedProxy_RoundTrip(t *testing.T) {
	srv := testutil.NewServer(t, testutil.JSON(feed{User: "zombie"}))
	reg := newTestRegistry(t)
	defineFeeds(reg, serverEndpoint(srv), nil, WithBuilder(RESTful))

	f := MustProvide[Feeds](reg)
	got, err := f.Feed(t.Context(), "zombie")
	if err != nil {
		t.Fatal(err)
	}
	if got.User != "zombie" {
		t.Errorf("unexpected feed %+v", got)
	}
	testutil.AssertPath(t, srv.LastRequest(t), "/api/zombie/feed")

	if err := f.Ping(t.Context()); err != nil {
		t.Fatal(err)
	}
	testutil.AssertPath(t, srv.LastRequest(t), "/api/ping")
}
