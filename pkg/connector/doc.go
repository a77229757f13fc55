// Package connector runs Domo governance reports and delivers their rows to
// pluggable sinks.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: the capabilities supplied by the host. Transport performs HTTP
//     round trips, Sink receives flattened rows, ErrorReporter receives the
//     single fatal error of a run and AuthNotifier receives the outcome of a
//     credential check.
//
//   - executor: the config-driven report executor. A ReportConfig selects one
//     of three fetch strategies (offset pagination, cursor pagination and
//     list+detail multi-fetch) or supplies its own Execute function. The
//     executor posts JSON requests, classifies failures, extracts items by
//     dotted path, flattens them and emits rows.
//
//   - reports: the static report catalog (Users, Functions, Approvals and
//     Approval Templates) with its GraphQL documents.
//
//   - registry: name-based lookup of reports and sink factories. Reports and
//     sinks self-register during initialization.
//
//   - destinations: sink implementations for files (JSON, CSV), object stores
//     (S3, GCS), databases (PostgreSQL, MongoDB), Kafka and memory.
//
// # Error Handling
//
// Failures are typed with pkg/errors. A fatal failure halts the run and is
// reported exactly once with the HTTP status of the failing response, or 500
// when there is none. Per-item failures of a multi-fetch report are logged,
// counted in the run Summary and skipped.
//
// # Basic Usage
//
//	exec := executor.New(registry.GetRegistry(), executor.Host{
//		Transport: clients.NewTransport(ctx, cfg, log),
//		Sink:      sink,
//		Reporter:  reporter,
//	}, cfg.Metadata().Account, log)
//	summary, err := exec.Run(ctx, "Users")
package connector
