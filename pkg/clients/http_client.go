// Package clients provides the HTTP transport used to reach the Domo API
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/oauth2"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
	"github.com/ajitpratap0/nebula-domo/pkg/observability"
)

// HTTPClient implements core.Transport on top of net/http
type HTTPClient struct {
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport
	metrics    *metrics.Collector

	totalRequests  int64
	failedRequests int64
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`

	EnableHTTP2 bool `json:"enable_http2"`

	DialTimeout         time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	KeepAlive           time.Duration `json:"keep_alive"`

	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	TLSMinVersion      uint16 `json:"tls_min_version"`

	UserAgent string `json:"user_agent"`
}

// DefaultHTTPConfig returns the default client configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		EnableHTTP2:         true,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RequestTimeout:      60 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSMinVersion:       tls.VersionTLS12,
		UserAgent:           "nebula-domo/1.0",
	}
}

// HTTPConfigFrom derives client settings from the connector configuration
func HTTPConfigFrom(cfg *config.BaseConfig) *HTTPConfig {
	hc := DefaultHTTPConfig()
	hc.EnableHTTP2 = cfg.HTTP.EnableHTTP2
	hc.InsecureSkipVerify = cfg.HTTP.InsecureSkipVerify
	if cfg.HTTP.MaxIdleConns > 0 {
		hc.MaxIdleConns = cfg.HTTP.MaxIdleConns
		hc.MaxIdleConnsPerHost = cfg.HTTP.MaxIdleConns
	}
	if cfg.HTTP.UserAgent != "" {
		hc.UserAgent = cfg.HTTP.UserAgent
	}
	if cfg.Timeouts.Request > 0 {
		hc.RequestTimeout = cfg.Timeouts.Request
	}
	if cfg.Timeouts.Connection > 0 {
		hc.DialTimeout = cfg.Timeouts.Connection
		hc.TLSHandshakeTimeout = cfg.Timeouts.Connection
	}
	return hc
}

// Option customizes an HTTPClient
type Option func(*HTTPClient)

// WithMetrics records every round trip in collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *HTTPClient) {
		c.metrics = collector
	}
}

// WithTokenSource authorizes every request with a bearer token from ts
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *HTTPClient) {
		c.httpClient.Transport = &oauth2.Transport{
			Source: ts,
			Base:   c.transport,
		}
	}
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(cfg *HTTPConfig, logger *zap.Logger, opts ...Option) *HTTPClient {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}

	client := &HTTPClient{
		config: cfg,
		logger: logger.With(zap.String("component", "http_client")),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for proxies with private CAs
			MinVersion:         cfg.TLSMinVersion,
		},
	}

	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		} else {
			client.logger.Debug("HTTP/2 enabled")
		}
	}

	client.httpClient = &http.Client{
		Transport: client.transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do performs req and reads the whole response body. Non-200 statuses are
// returned as responses; only a failure to get any response is an error.
func (c *HTTPClient) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	ctx, span := observability.StartSpan(ctx, "http.request",
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
	)
	defer span.End()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		span.Fail(err)
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "failed to build request")
	}

	report, _ := ctx.Value(logger.ReportKey).(string)
	atomic.AddInt64(&c.totalRequests, 1)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		atomic.AddInt64(&c.failedRequests, 1)
		c.metrics.ObserveRequest(report, 0, time.Since(start))
		span.Fail(err)
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	c.metrics.ObserveRequest(report, resp.StatusCode, duration)
	span.SetAttribute("http.status_code", resp.StatusCode)
	if err != nil {
		atomic.AddInt64(&c.failedRequests, 1)
		span.Fail(err)
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "failed to read response body")
	}

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", duration))

	return &core.Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, req *core.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	carrier := make(map[string]string, 2)
	observability.InjectHeaders(ctx, carrier)
	for key, value := range carrier {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	return httpReq, nil
}

// HTTPStats represents HTTP client statistics
type HTTPStats struct {
	TotalRequests  int64 `json:"total_requests"`
	FailedRequests int64 `json:"failed_requests"`
}

// GetStats returns current client statistics
func (c *HTTPClient) GetStats() HTTPStats {
	return HTTPStats{
		TotalRequests:  atomic.LoadInt64(&c.totalRequests),
		FailedRequests: atomic.LoadInt64(&c.failedRequests),
	}
}

// Close releases idle connections
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
