package s3

import (
	"context"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

func init() {
	// Register the S3 sink
	_ = registry.RegisterSink("s3", func(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
		return NewS3Sink(ctx, cfg)
	})
}
