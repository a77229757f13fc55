// Package memory provides a sink that keeps rows in memory, for previews
// and embedding hosts that consume rows directly
package memory

import (
	"context"
	"sync"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

func init() {
	_ = registry.RegisterSink("memory", func(context.Context, *config.BaseConfig) (core.Sink, error) {
		return NewMemorySink(0), nil
	})
}

// MemorySink stores ingested rows
type MemorySink struct {
	mu      sync.Mutex
	rows    []rows.Row
	limit   int
	dropped int
	closed  bool
}

// NewMemorySink keeps at most limit rows; zero keeps everything
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

// Ingest implements core.Sink
func (s *MemorySink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range batch {
		if s.limit > 0 && len(s.rows) >= s.limit {
			s.dropped++
			continue
		}
		s.rows = append(s.rows, row)
	}
	return nil
}

// Close implements core.Sink
func (s *MemorySink) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Rows returns a copy of the stored rows
func (s *MemorySink) Rows() []rows.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rows.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Dropped returns how many rows exceeded the limit
func (s *MemorySink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
