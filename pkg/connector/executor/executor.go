// Package executor runs config-driven Domo reports.
//
// A report is a static ReportConfig selecting one of three strategies:
// offset pagination, cursor pagination or list+detail multi-fetch. The
// Executor resolves the report by name, runs its strategy (or its custom
// Execute override), flattens every page into rows for the sink and reports
// a fatal failure to the host exactly once.
//
// Requests are issued one at a time; there is no retry, concurrency or
// caching.
package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
	"github.com/ajitpratap0/nebula-domo/pkg/observability"
)

// Catalog resolves report definitions by name
type Catalog interface {
	Report(name string) (*ReportConfig, bool)
}

// Host bundles the capabilities supplied by the embedding environment
type Host struct {
	Transport core.Transport
	Sink      core.Sink
	Reporter  core.ErrorReporter
}

// Summary describes a finished run
type Summary struct {
	Report string `json:"report"`
	Mode   Mode   `json:"mode"`
	// Pages counts successful responses: pages, list and detail fetches
	Pages int `json:"pages"`
	Rows  int `json:"rows"`
	// Skipped counts multi-fetch items without an id
	Skipped int `json:"skipped"`
	// Failed counts multi-fetch items whose detail could not be fetched
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Executor runs reports for one account
type Executor struct {
	catalog     Catalog
	host        Host
	baseURL     string
	accessToken string
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// Option customizes an Executor
type Option func(*Executor)

// WithBaseURL replaces https://<instance>.domo.com/api
func WithBaseURL(baseURL string) Option {
	return func(e *Executor) {
		e.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithMetrics records run metrics in collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Executor) {
		e.metrics = collector
	}
}

// New creates an executor for account
func New(catalog Catalog, host Host, account core.Account, log *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		catalog:     catalog,
		host:        host,
		baseURL:     fmt.Sprintf("https://%s.domo.com/api", account.Instance),
		accessToken: account.AccessToken,
		logger:      log.With(zap.String("component", "report_executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the named report. A fatal failure is reported to the host
// exactly once and also returned; per-item failures only show up in the
// Summary.
func (e *Executor) Run(ctx context.Context, name string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Report: name}

	ctx = context.WithValue(ctx, logger.ReportKey, name)
	ctx, span := observability.StartSpan(ctx, "report.run", attribute.String("report", name))
	defer span.End()
	log := logger.FromContext(ctx, e.logger)

	cfg, ok := e.catalog.Report(name)
	if !ok {
		err := errors.Newf(errors.ErrorTypeUnsupported, "%s is not a supported report", name)
		log.Error("unknown report")
		e.host.Reporter.ReportError(0, err.Message)
		e.metrics.RunFinished(name, "unsupported", time.Since(start))
		span.Fail(err)
		return summary, err
	}
	summary.Mode = cfg.Mode
	span.SetAttribute("mode", string(cfg.Mode))

	run := &Run{
		Report:   cfg,
		Poster:   e.poster(cfg.Endpoint),
		Logger:   log.With(zap.String("mode", string(cfg.Mode))),
		executor: e,
		sink:     e.host.Sink,
		metrics:  e.metrics,
		summary:  summary,
		span:     span,
	}

	log.Info("report run started", zap.String("url", run.Poster.URL()))
	err := e.execute(ctx, run)
	summary.Duration = time.Since(start)
	span.SetAttribute("rows", summary.Rows)
	span.SetAttribute("pages", summary.Pages)

	if err != nil {
		status := errors.StatusOf(err)
		message := errors.MessageOf(err)
		log.Error("report run failed",
			zap.Int("status", status),
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.String("error", message),
			zap.Int("rows", summary.Rows))
		e.host.Reporter.ReportError(status, message)
		e.metrics.RunFinished(name, "error", summary.Duration)
		span.Fail(err)
		return summary, err
	}

	log.Info("report run completed",
		zap.Int("pages", summary.Pages),
		zap.Int("rows", summary.Rows),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	e.metrics.RunFinished(name, "success", summary.Duration)
	span.Fail(nil)
	return summary, nil
}

func (e *Executor) execute(ctx context.Context, run *Run) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			run.Logger.Error("unexpected panic while executing report", zap.Any("panic", rec))
			err = errors.Newf(errors.ErrorTypeInternal, "Unexpected error: %v", rec).
				WithStatus(http.StatusInternalServerError)
		}
	}()

	cfg := run.Report
	if cfg.Execute != nil {
		return cfg.Execute(ctx, run)
	}

	switch {
	case cfg.Mode == ModeOffset && cfg.Offset != nil:
		return run.offsetPagination(ctx)
	case cfg.Mode == ModeCursor && cfg.Cursor != nil:
		return run.cursorPagination(ctx)
	case cfg.Mode == ModeMultiFetch && cfg.MultiFetch != nil:
		return run.multiFetch(ctx)
	default:
		return errors.Newf(errors.ErrorTypeUnsupported, "Unsupported mode for report: %s", cfg.Name).
			WithStatus(http.StatusInternalServerError)
	}
}

func (e *Executor) poster(endpoint string) *Poster {
	return NewPoster(e.host.Transport, e.baseURL+endpoint, e.accessToken, e.logger)
}
