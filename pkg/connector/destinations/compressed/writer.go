// Package compressed encodes row batches as JSON into an optionally
// compressed stream. File and object-store sinks share it.
package compressed

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-domo/pkg/compression"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// Output formats
const (
	// FormatLines writes newline-delimited JSON
	FormatLines = "lines"
	// FormatArray writes a single JSON array
	FormatArray = "array"
)

const bufferSize = 64 * 1024

// Settings are the encoding options read from the sink configuration
type Settings struct {
	Format    string
	Algorithm compression.Algorithm
	Level     compression.Level
}

// SettingsFrom validates and extracts encoding settings
func SettingsFrom(sink config.SinkConfig) (Settings, error) {
	format := strings.ToLower(sink.Format)
	switch format {
	case "":
		format = FormatLines
	case FormatLines, FormatArray:
	default:
		return Settings{}, fmt.Errorf("unsupported sink format %q", sink.Format)
	}

	alg, err := compression.ParseAlgorithm(sink.Compression)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Format:    format,
		Algorithm: alg,
		Level:     compression.LevelFromInt(sink.CompressionLevel),
	}, nil
}

// Extension returns the file suffix for the settings, e.g. ".ndjson.zst"
func (s Settings) Extension() string {
	ext := ".ndjson"
	if s.Format == FormatArray {
		ext = ".json"
	}
	return ext + compression.Extension(s.Algorithm)
}

// ObjectName builds prefix/report/20060102T150405Z<ext> for object stores
func (s Settings) ObjectName(prefix, report string, now time.Time) string {
	report = strings.NewReplacer(" ", "_", "/", "_").Replace(strings.ToLower(report))
	if report == "" {
		report = "report"
	}
	name := now.UTC().Format("20060102T150405Z") + s.Extension()
	return path.Join(strings.Trim(prefix, "/"), report, name)
}

// RowWriter streams rows through a JSON encoder and a compressor
type RowWriter struct {
	buf     *bufio.Writer
	comp    io.WriteCloser
	enc     *jsonpool.StreamingEncoder
	written int64
	closed  bool
}

// NewRowWriter wraps dst. Closing the RowWriter does not close dst.
func NewRowWriter(dst io.Writer, s Settings) (*RowWriter, error) {
	comp, err := compression.NewWriter(dst, s.Algorithm, s.Level)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(comp, bufferSize)
	return &RowWriter{
		buf:  buf,
		comp: comp,
		enc:  jsonpool.NewStreamingEncoder(buf, s.Format == FormatArray),
	}, nil
}

// Write encodes a batch
func (w *RowWriter) Write(batch []rows.Row) error {
	if w.closed {
		return fmt.Errorf("row writer is closed")
	}
	for _, row := range batch {
		if err := w.enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
		w.written++
	}
	return nil
}

// Rows returns the number of rows written
func (w *RowWriter) Rows() int64 {
	return w.written
}

// Close terminates the JSON stream and flushes the compressor
func (w *RowWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.comp.Close()
}
