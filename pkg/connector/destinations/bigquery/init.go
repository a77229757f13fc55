package bigquery

import (
	"context"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("bigquery", func(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
		return NewBigQuerySink(ctx, cfg)
	})
}
