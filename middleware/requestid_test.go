package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/restwire"
	"github.com/broady/restwire/testutil"
)

func TestRequestIDInterceptor_Generates(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	_, err := RequestIDInterceptor()(testCall(), req, respond(http.StatusOK))
	require.NoError(t, err)

	id := req.Header.Get(RequestIDHeader)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "expected a UUID, got %q", id)
}

func TestRequestIDInterceptor_FromContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithRequestID(req.Context(), "trace-1"))

	_, err := RequestIDInterceptor()(testCall(), req, respond(http.StatusOK))
	require.NoError(t, err)
	assert.Equal(t, "trace-1", req.Header.Get(RequestIDHeader))
}

func TestRequestIDInterceptor_KeepsExisting(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "fixed")

	_, err := RequestIDInterceptor()(testCall(), req, respond(http.StatusOK))
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed"}, req.Header.Values(RequestIDHeader))
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	_, ok := RequestIDFromContext(t.Context())
	assert.False(t, ok)
	_, ok = RequestIDFromContext(WithRequestID(t.Context(), ""))
	assert.False(t, ok)
}

func TestInterceptors_ThroughRegistry(t *testing.T) {
	srv := testutil.NewServer(t, testutil.Text("ok"))
	clients := restwire.NewClientDirectory(nil)
	t.Cleanup(clients.Close)

	reg := restwire.NewRegistry().
		WithEndpoints(restwire.NewEndpointDirectory()).
		WithClients(clients).
		WithUnaryInterceptor(RequestIDInterceptor()).
		WithUnaryInterceptor(LoggingInterceptor(nil))
	def := restwire.Declare(reg, "svc", &restwire.Endpoint{
		Scheme:   "http",
		Host:     srv.Host(),
		Port:     srv.Port(),
		BasePath: "/",
	}).Register("Ping", restwire.GET("/ping"))

	v, err := reg.Provide(def.ID())
	require.NoError(t, err)
	p := v.(*restwire.Proxy)

	ctx := WithRequestID(t.Context(), "abc")
	_, err = p.Call(ctx, "Ping")
	require.NoError(t, err)

	testutil.AssertHeader(t, srv.LastRequest(t), RequestIDHeader, "abc")
}
