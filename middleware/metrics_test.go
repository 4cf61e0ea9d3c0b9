package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	interceptor := m.Interceptor()
	req := httptest.NewRequest("GET", "/", nil)

	for i := 0; i < 2; i++ {
		_, err := interceptor(testCall(), req, respond(http.StatusOK))
		require.NoError(t, err)
	}
	_, err = interceptor(testCall(), req, respond(http.StatusNotFound))
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.requests.WithLabelValues("example.Feeds", "Feed", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("example.Feeds", "Feed", "404")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.inflight.WithLabelValues("example.Feeds")))
	assert.Equal(t, 1, promtest.CollectAndCount(m.duration))
}

func TestMetrics_TransportError(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	boom := errors.New("dial failed")
	_, err = m.Interceptor()(testCall(), httptest.NewRequest("GET", "/", nil), func(*http.Request) (*http.Response, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("example.Feeds", "Feed", "error")))
}

func TestMetrics_NilResponse(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	resp, err := m.Interceptor()(testCall(), httptest.NewRequest("GET", "/", nil), func(*http.Request) (*http.Response, error) {
		return nil, nil
	})
	assert.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("example.Feeds", "Feed", "error")))
}

func TestMetrics_InFlight(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var during float64
	_, err = m.Interceptor()(testCall(), httptest.NewRequest("GET", "/", nil), func(req *http.Request) (*http.Response, error) {
		during = promtest.ToFloat64(m.inflight.WithLabelValues("example.Feeds"))
		return respond(http.StatusOK)(req)
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, during)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
