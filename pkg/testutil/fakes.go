package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// Handler answers one request of a FakeTransport
type Handler func(req *core.Request) (*core.Response, error)

// FakeTransport is a core.Transport that records requests and delegates
// responses to a Handler
type FakeTransport struct {
	mu       sync.Mutex
	handler  Handler
	requests []*core.Request
}

// NewFakeTransport creates a transport answering with h
func NewFakeTransport(h Handler) *FakeTransport {
	return &FakeTransport{handler: h}
}

// Do implements core.Transport
func (f *FakeTransport) Do(_ context.Context, req *core.Request) (*core.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(req)
}

// Requests returns the requests seen so far
func (f *FakeTransport) Requests() []*core.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*core.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestBody decodes the JSON body of the i-th request
func (f *FakeTransport) RequestBody(i int) map[string]interface{} {
	reqs := f.Requests()
	if i >= len(reqs) {
		return nil
	}
	var body map[string]interface{}
	if err := jsonpool.Unmarshal(reqs[i].Body, &body); err != nil {
		return nil
	}
	return body
}

// Respond builds a response with a literal body
func Respond(status int, body string) *core.Response {
	return &core.Response{StatusCode: status, Body: []byte(body)}
}

// RespondJSON builds a 200 response by marshaling v
func RespondJSON(v interface{}) *core.Response {
	data, err := jsonpool.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &core.Response{StatusCode: 200, Body: data}
}

// Queue answers requests with responses in order and fails once they run out
func Queue(responses ...*core.Response) Handler {
	var mu sync.Mutex
	next := 0
	return func(*core.Request) (*core.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(responses) {
			return nil, fmt.Errorf("no scripted response for request %d", next+1)
		}
		resp := responses[next]
		next++
		return resp, nil
	}
}

// RecordingSink is a core.Sink that keeps every batch in memory
type RecordingSink struct {
	mu      sync.Mutex
	batches [][]rows.Row
	closed  bool
	// Err, when set, is returned from Ingest instead of storing the batch
	Err error
}

// Ingest implements core.Sink
func (s *RecordingSink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.batches = append(s.batches, batch)
	return nil
}

// Close implements core.Sink
func (s *RecordingSink) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Batches returns the ingested batches
func (s *RecordingSink) Batches() [][]rows.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Rows returns every ingested row in order
func (s *RecordingSink) Rows() []rows.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []rows.Row
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

// Closed reports whether Close was called
func (s *RecordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReportedError is one ErrorReporter call
type ReportedError struct {
	Status  int
	Message string
}

// Reporter is a core.ErrorReporter that records calls
type Reporter struct {
	mu    sync.Mutex
	calls []ReportedError
}

// ReportError implements core.ErrorReporter
func (r *Reporter) ReportError(status int, message string) {
	r.mu.Lock()
	r.calls = append(r.calls, ReportedError{Status: status, Message: message})
	r.mu.Unlock()
}

// Calls returns the recorded reports
func (r *Reporter) Calls() []ReportedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReportedError, len(r.calls))
	copy(out, r.calls)
	return out
}

// Notifier is a core.AuthNotifier that records outcomes
type Notifier struct {
	Successes int
	Failures  []string
}

// AuthenticationSuccess implements core.AuthNotifier
func (n *Notifier) AuthenticationSuccess() {
	n.Successes++
}

// AuthenticationFailed implements core.AuthNotifier
func (n *Notifier) AuthenticationFailed(message string) {
	n.Failures = append(n.Failures, message)
}
