package restwire

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/broady/restwire/testutil"
)

func okResponse(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}, nil
}

func TestChainInterceptors_Empty(t *testing.T) {
	chain := chainInterceptors([]UnaryInterceptor{})
	if chain != nil {
		t.Error("expected nil chain for empty interceptors")
	}
}

func TestChainInterceptors_Single(t *testing.T) {
	called := false
	interceptor := func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		called = true
		return next(req)
	}

	chain := chainInterceptors([]UnaryInterceptor{interceptor})
	if chain == nil {
		t.Fatal("expected non-nil chain")
	}

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := chain(&Call{Endpoint: "test.Service", Method: "Method"}, req, okResponse)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !called {
		t.Error("expected interceptor to be called")
	}
}

func TestChainInterceptors_Multiple(t *testing.T) {
	var order []string

	mk := func(name string) UnaryInterceptor {
		return func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
			order = append(order, "before-"+name)
			resp, err := next(req)
			order = append(order, "after-"+name)
			return resp, err
		}
	}

	chain := chainInterceptors([]UnaryInterceptor{mk("1"), mk("2"), mk("3")})
	if chain == nil {
		t.Fatal("expected non-nil chain")
	}

	final := func(req *http.Request) (*http.Response, error) {
		order = append(order, "client")
		return okResponse(req)
	}

	if _, err := chain(&Call{}, httptest.NewRequest("GET", "/", nil), final); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"before-1", "before-2", "before-3", "client", "after-3", "after-2", "after-1"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("expected order %v, got %v", expected, order)
	}
}

func TestChainInterceptors_ShortCircuit(t *testing.T) {
	boom := errors.New("blocked")
	blocking := func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		return nil, boom
	}
	reached := false
	chain := chainInterceptors([]UnaryInterceptor{blocking, func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		reached = true
		return next(req)
	}})

	_, err := chain(&Call{}, httptest.NewRequest("GET", "/", nil), okResponse)
	if !errors.Is(err, boom) {
		t.Errorf("expected blocked error, got %v", err)
	}
	if reached {
		t.Error("expected second interceptor to be skipped")
	}
}

func TestPipeline_InterceptorOrderAndRequestMutation(t *testing.T) {
	srv := testutil.NewServer(t, testutil.Text("hi"))

	var order []string
	record := func(name string) UnaryInterceptor {
		return func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
			order = append(order, name+":"+call.Method)
			return next(req)
		}
	}
	stamp := func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		req.Header.Set("X-Stamped", string(call.Endpoint))
		return next(req)
	}

	reg := newTestRegistry(t).WithUnaryInterceptor(record("registry")).WithUnaryInterceptor(stamp)
	def := Declare(reg, "svc", serverEndpoint(srv), WithInterceptor(record("definition"))).
		Register("Hello", GET("/hello").Returns(TypeOf[string]()))
	p := proxyOf(t, reg, def)

	if _, err := p.Call(t.Context(), "Hello"); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if strings.Join(order, ",") != "registry:Hello,definition:Hello" {
		t.Errorf("unexpected interceptor order %v", order)
	}
	testutil.AssertHeader(t, srv.LastRequest(t), "X-Stamped", "svc")
}

func TestPipeline_InterceptorErrorIsExecutionFailure(t *testing.T) {
	srv := testutil.NewServer(t, testutil.Text("hi"))
	reg := newTestRegistry(t).WithUnaryInterceptor(func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		return nil, errors.New("offline")
	})
	def := Declare(reg, "svc", serverEndpoint(srv)).Register("Hello", GET("/hello"))
	p := proxyOf(t, reg, def)

	_, err := p.Call(t.Context(), "Hello")
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvocationError, got %T: %v", err, err)
	}
	if ie.Stage != StageExecute || ie.Kind() != KindExecution {
		t.Errorf("expected execute/execution, got %s/%s", ie.Stage, ie.Kind())
	}
	if len(srv.Requests()) != 0 {
		t.Error("expected no request to reach the server")
	}
}

func TestPipeline_InterceptorErrorClosesResponse(t *testing.T) {
	srv := testutil.NewServer(t, testutil.Text("hi"))
	body := &trackedBody{Reader: strings.NewReader("bad gateway")}
	reg := newTestRegistry(t).WithUnaryInterceptor(func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadGateway, Header: make(http.Header), Body: body}, errors.New("upstream")
	})
	def := Declare(reg, "svc", serverEndpoint(srv)).Register("Hello", GET("/hello"))
	p := proxyOf(t, reg, def)

	_, err := p.Call(t.Context(), "Hello")
	if KindOf(err) != KindExecution {
		t.Errorf("expected execution error, got %v", err)
	}
	if !body.closed {
		t.Error("expected the response body returned with the error to be closed")
	}
}
