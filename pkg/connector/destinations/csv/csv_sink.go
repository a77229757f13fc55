// Package csv provides a sink writing rows to a CSV file. Rows of one report
// may carry different keys, so rows are buffered and the header (the union
// of all keys in first-seen order) is written on Close.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/compression"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// CSVSink buffers rows and writes them as CSV on Close
type CSVSink struct {
	mu      sync.Mutex
	path    string
	alg     compression.Algorithm
	level   compression.Level
	columns []string
	seen    map[string]struct{}
	rows    []rows.Row
	closed  bool
	logger  *zap.Logger
}

// NewCSVSink creates a sink for cfg.Sink.Path ("-" or empty is stdout)
func NewCSVSink(cfg *config.BaseConfig) (*CSVSink, error) {
	alg, err := compression.ParseAlgorithm(cfg.Sink.Compression)
	if err != nil {
		return nil, err
	}
	return &CSVSink{
		path:   cfg.Sink.Path,
		alg:    alg,
		level:  compression.LevelFromInt(cfg.Sink.CompressionLevel),
		seen:   make(map[string]struct{}),
		logger: logger.Get().With(zap.String("component", "csv_sink")),
	}, nil
}

// Ingest implements core.Sink
func (s *CSVSink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("csv sink is closed")
	}
	for _, row := range batch {
		s.addColumns(row)
		s.rows = append(s.rows, row)
	}
	return nil
}

func (s *CSVSink) addColumns(row rows.Row) {
	var fresh []string
	for key := range row {
		if _, ok := s.seen[key]; !ok {
			s.seen[key] = struct{}{}
			fresh = append(fresh, key)
		}
	}
	sort.Strings(fresh)
	s.columns = append(s.columns, fresh...)
}

// Columns returns the header collected so far
func (s *CSVSink) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.columns...)
}

// Close writes the buffered rows
func (s *CSVSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var out io.Writer = os.Stdout
	var file *os.File
	if s.path != "" && s.path != "-" {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		file = f
		out = f
	}

	err := s.writeTo(out)
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	s.logger.Debug("csv sink closed", zap.String("path", s.path), zap.Int("rows", len(s.rows)))
	return err
}

func (s *CSVSink) writeTo(out io.Writer) error {
	comp, err := compression.NewWriter(out, s.alg, s.level)
	if err != nil {
		return err
	}

	w := csv.NewWriter(comp)
	if len(s.columns) > 0 {
		if err := w.Write(s.columns); err != nil {
			return err
		}
	}

	record := make([]string, len(s.columns))
	for _, row := range s.rows {
		for i, col := range s.columns {
			record[i] = Cell(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return comp.Close()
}

// Cell renders a JSON value as a CSV field. Nested objects are written as
// compact JSON; null and missing values are empty.
func Cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		data, err := jsonpool.MarshalCompact(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
