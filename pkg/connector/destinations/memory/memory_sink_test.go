package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

func TestMemorySinkLimit(t *testing.T) {
	s := NewMemorySink(2)
	require.NoError(t, s.Ingest(context.Background(), []rows.Row{{"a": 1}, {"a": 2}, {"a": 3}}))
	require.NoError(t, s.Close(context.Background()))

	assert.Len(t, s.Rows(), 2)
	assert.Equal(t, 1, s.Dropped())
}

func TestMemorySinkRegistered(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	cfg.Sink.Type = "memory"
	sink, err := registry.CreateSink(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemorySink{}, sink)
}
