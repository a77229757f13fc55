package postgres

import (
	"context"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("postgres", func(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
		return NewPostgresSink(ctx, cfg)
	})
}
