package gcs

import (
	"context"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

func init() {
	// Register the GCS sink
	_ = registry.RegisterSink("gcs", func(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
		return NewGCSSink(ctx, cfg)
	})
}
