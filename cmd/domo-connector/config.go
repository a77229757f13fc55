package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
)

// loadConfig merges defaults, the YAML file and viper-bound overrides
func loadConfig(v *viper.Viper) (*config.BaseConfig, error) {
	cfg := config.NewBaseConfig("domo-connector")

	if path := v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}

	overrideString(v, "instance", &cfg.Account.Instance)
	overrideString(v, "access-token", &cfg.Account.AccessToken)
	overrideString(v, "base-url", &cfg.Account.BaseURL)
	overrideString(v, "report", &cfg.Report)
	overrideString(v, "sink", &cfg.Sink.Type)
	overrideString(v, "output", &cfg.Sink.Path)
	overrideString(v, "log-level", &cfg.Observability.LogLevel)
	overrideString(v, "metrics-file", &cfg.Observability.MetricsFile)

	if v.IsSet("timeout") {
		if d := v.GetDuration("timeout"); d > 0 {
			cfg.Timeouts.Run = d
		}
	}
	if v.IsSet("tracing") {
		cfg.Observability.EnableTracing = v.GetBool("tracing")
	}
	if cfg.Observability.MetricsFile != "" {
		cfg.Observability.EnableMetrics = true
	}
	return cfg, nil
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
}
