package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
)

func TestHTTPClientDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "abc123", r.Header.Get("X-DOMO-Developer-Token"))
		assert.Equal(t, "nebula-domo/1.0", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"limit":100}`, string(body))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	collector := metrics.NewCollector("test")
	client := NewHTTPClient(DefaultHTTPConfig(), zaptest.NewLogger(t), WithMetrics(collector))
	defer client.Close()

	ctx := context.WithValue(context.Background(), logger.ReportKey, "Users")
	resp, err := client.Do(ctx, &core.Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"X-DOMO-Developer-Token": "abc123"},
		Body:    []byte(`{"limit":100}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))

	series, err := testutil.GatherAndCount(collector.Registry(), "test_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
	stats := client.GetStats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(0), stats.FailedRequests)
}

func TestHTTPClientNonOKIsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	resp, err := client.Do(context.Background(), &core.Request{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	resp, err := client.Do(context.Background(), &core.Request{Method: http.MethodGet, URL: url})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
	assert.Equal(t, int64(1), client.GetStats().FailedRequests)
}

func TestHTTPClientPropagatesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator()) })

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer server.Close()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	_, err = client.Do(ctx, &core.Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(traceparent, "00-4bf92f3577b34da6a3ce929d0e0e4736-"), traceparent)
}

func TestHTTPClientRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	client := NewHTTPClient(cfg, zaptest.NewLogger(t))

	_, err := client.Do(context.Background(), &core.Request{Method: http.MethodGet, URL: server.URL})
	assert.Error(t, err)
}

func TestOAuth2BearerToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	cfg := config.NewBaseConfig("oauth")
	cfg.Account.AuthType = config.AuthTypeOAuth2
	cfg.Account.ClientID = "client"
	cfg.Account.ClientSecret = "secret"
	cfg.Account.TokenURL = tokenServer.URL
	cfg.Account.BaseURL = api.URL

	client := NewTransport(context.Background(), cfg, zaptest.NewLogger(t))
	resp, err := client.Do(context.Background(), &core.Request{Method: http.MethodGet, URL: api.URL + "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPConfigFrom(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	cfg.HTTP.UserAgent = "custom/2"
	cfg.HTTP.MaxIdleConns = 3
	cfg.Timeouts.Request = 5 * time.Second

	hc := HTTPConfigFrom(cfg)
	assert.Equal(t, "custom/2", hc.UserAgent)
	assert.Equal(t, 3, hc.MaxIdleConnsPerHost)
	assert.Equal(t, 5*time.Second, hc.RequestTimeout)
	assert.True(t, strings.HasPrefix(DefaultHTTPConfig().UserAgent, "nebula-domo"))
}
