package json

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-domo/pkg/compression"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

func TestJSONSinkLines(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	cfg.Sink.Type = "json"
	cfg.Sink.Path = filepath.Join(t.TempDir(), "out", "users.ndjson")

	sink, err := registry.CreateSink(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, sink.Ingest(context.Background(), []rows.Row{{"id": "1"}, {"id": "2"}}))
	require.NoError(t, sink.Close(context.Background()))

	data, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"1\"}\n{\"id\":\"2\"}\n", string(data))
}

func TestJSONSinkCompressedArray(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	cfg.Sink.Path = filepath.Join(t.TempDir(), "users.json.zst")
	cfg.Sink.Format = "array"
	cfg.Sink.Compression = "zstd"

	sink, err := NewJSONSink(cfg)
	require.NoError(t, err)
	require.NoError(t, sink.Ingest(context.Background(), []rows.Row{{"id": "1"}}))
	require.NoError(t, sink.Close(context.Background()))

	data, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)
	plain, err := compression.Decompress(data, compression.Zstd)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plain), "["))
	assert.Contains(t, string(plain), `{"id":"1"}`)
}

func TestJSONSinkBadFormat(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	cfg.Sink.Format = "xml"
	_, err := NewJSONSink(cfg)
	assert.Error(t, err)
}
