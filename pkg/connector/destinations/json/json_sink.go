// Package json provides a sink writing rows as newline-delimited JSON or a
// JSON array to a file or stdout, optionally compressed
package json

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// StdoutPath selects standard output instead of a file
const StdoutPath = "-"

// JSONSink writes rows to a file
type JSONSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *compressed.RowWriter
	path   string
	logger *zap.Logger
}

// NewJSONSink opens the file named by cfg.Sink.Path, truncating it
func NewJSONSink(cfg *config.BaseConfig) (*JSONSink, error) {
	settings, err := compressed.SettingsFrom(cfg.Sink)
	if err != nil {
		return nil, err
	}

	s := &JSONSink{
		path:   cfg.Sink.Path,
		logger: logger.Get().With(zap.String("component", "json_sink")),
	}

	var out io.Writer = os.Stdout
	if s.path != "" && s.path != StdoutPath {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		s.file = f
		out = f
	}

	s.writer, err = compressed.NewRowWriter(out, settings)
	if err != nil {
		if s.file != nil {
			_ = s.file.Close()
		}
		return nil, err
	}
	return s, nil
}

// Ingest implements core.Sink
func (s *JSONSink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Write(batch)
}

// Close flushes the stream and closes the file
func (s *JSONSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.writer.Close()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
		s.file = nil
	}
	s.logger.Debug("json sink closed", zap.String("path", s.path), zap.Int64("rows", s.writer.Rows()))
	return err
}
