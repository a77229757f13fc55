// Package core defines the capabilities a report run depends on. The
// executor only talks to the outside world through these interfaces, so
// each one can be replaced by a fake in tests or by a different host.
package core

import (
	"context"

	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// Request is a single outbound HTTP call
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the raw result of a Request
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport issues synchronous HTTP requests. A non-nil error means no
// response was received at all; non-200 statuses are returned as responses.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Sink ingests flattened rows into tabular storage
type Sink interface {
	// Ingest accepts one page or batch of rows
	Ingest(ctx context.Context, rows []rows.Row) error
	// Close flushes buffered rows and releases resources
	Close(ctx context.Context) error
}

// ErrorReporter receives unrecoverable failures for the current run
type ErrorReporter interface {
	ReportError(statusCode int, message string)
}

// AuthNotifier receives the outcome of a credential check
type AuthNotifier interface {
	AuthenticationSuccess()
	AuthenticationFailed(message string)
}

// Account holds the credentials selected by the host
type Account struct {
	AccessToken string
	Instance    string
}

// Metadata is the input of a run: the account and the report to execute
type Metadata struct {
	Account Account
	Report  string
}

// SinkFunc adapts a function to the Sink interface; Close is a no-op
type SinkFunc func(ctx context.Context, rows []rows.Row) error

// Ingest calls f
func (f SinkFunc) Ingest(ctx context.Context, rows []rows.Row) error {
	return f(ctx, rows)
}

// Close implements Sink
func (f SinkFunc) Close(context.Context) error {
	return nil
}

// ReporterFunc adapts a function to the ErrorReporter interface
type ReporterFunc func(statusCode int, message string)

// ReportError calls f
func (f ReporterFunc) ReportError(statusCode int, message string) {
	f(statusCode, message)
}
