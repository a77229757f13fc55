package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/auth"
	"github.com/ajitpratap0/nebula-domo/pkg/clients"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/executor"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
	"github.com/ajitpratap0/nebula-domo/pkg/observability"
)

// app holds the process-wide services of one command invocation
type app struct {
	cfg     *config.BaseConfig
	log     *zap.Logger
	tracing *observability.Tracing
	metrics *metrics.Collector
}

func newApp(cfg *config.BaseConfig, stderr io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Development: cfg.Observability.Development,
		Encoding:    cfg.Observability.LogEncoding,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg: cfg,
		log: logger.Get().With(zap.String("component", "domo-cli"), zap.String("instance", cfg.Account.Instance)),
	}

	if cfg.Observability.EnableTracing {
		a.tracing, err = observability.InitTracing(observability.TracingConfig{
			ServiceName:    "domo-connector",
			ServiceVersion: version,
			SamplingRate:   cfg.Observability.TracingSampleRate,
			Writer:         stderr,
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.Observability.EnableMetrics {
		a.metrics = metrics.NewCollector("domo_connector")
	}
	return a, nil
}

func (a *app) transport(ctx context.Context) *clients.HTTPClient {
	return clients.NewTransport(ctx, a.cfg, a.log, clients.WithMetrics(a.metrics))
}

func (a *app) close(ctx context.Context) {
	if path := a.cfg.Observability.MetricsFile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.log.Warn("failed to write metrics file", zap.String("path", path), zap.Error(err))
		}
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	_ = logger.Sync()
}

// cliReporter prints fatal run errors for the operator
type cliReporter struct {
	out    io.Writer
	status int
}

func (r *cliReporter) ReportError(statusCode int, message string) {
	r.status = statusCode
	fmt.Fprintf(r.out, "error (status %d): %s\n", statusCode, message)
}

// cliNotifier prints the outcome of the credential check
type cliNotifier struct {
	out io.Writer
	ok  bool
}

func (n *cliNotifier) AuthenticationSuccess() {
	n.ok = true
	fmt.Fprintln(n.out, "authentication succeeded")
}

func (n *cliNotifier) AuthenticationFailed(message string) {
	fmt.Fprintf(n.out, "authentication failed: %s\n", message)
}

func newAuthCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Check the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			defer a.close(context.Background())

			transport := a.transport(ctx)
			defer transport.Close()

			var opts []auth.Option
			if cfg.Account.BaseURL != "" {
				opts = append(opts, auth.WithBaseURL(cfg.Account.APIBaseURL()))
			}
			notifier := &cliNotifier{out: cmd.OutOrStdout()}
			authenticator := auth.NewAuthenticator(transport, a.log, opts...)
			// OAuth2 accounts carry no developer token; the transport adds the bearer
			if cfg.Account.IsOAuth2() {
				return authenticator.AuthenticateBearer(ctx, cfg.Account.Instance, notifier)
			}
			return authenticator.Authenticate(ctx, cfg.Metadata().Account, notifier)
		},
	}
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [report]",
		Short: "Execute a report and write its rows to the sink",
		Long: `Execute a report and write its rows to the configured sink.

Example:
  domo-connector run Users --instance acme --access-token $TOKEN --sink csv --output users.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Report = args[0]
			}
			if cfg.Report == "" {
				return fmt.Errorf("a report name is required (see 'list')")
			}
			return runReport(cmd, cfg)
		},
	}
	cmd.Flags().String("report", "", "Report to execute (alternative to the positional argument)")
	_ = v.BindPFlag("report", cmd.Flags().Lookup("report"))
	return cmd
}

// runOutput is the summary line printed after a successful run
type runOutput struct {
	*executor.Summary
	Transport clients.HTTPStats `json:"transport"`
}

func runReport(cmd *cobra.Command, cfg *config.BaseConfig) error {
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Timeouts.Run > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Run)
		defer cancel()
	}

	sink, err := registry.CreateSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create sink '%s': %w", cfg.Sink.Type, err)
	}

	transport := a.transport(ctx)
	defer transport.Close()

	reporter := &cliReporter{out: cmd.ErrOrStderr()}
	opts := []executor.Option{executor.WithMetrics(a.metrics)}
	if cfg.Account.BaseURL != "" {
		opts = append(opts, executor.WithBaseURL(cfg.Account.APIBaseURL()))
	}
	exec := executor.New(registry.GetRegistry(), executor.Host{
		Transport: transport,
		Sink:      sink,
		Reporter:  reporter,
	}, cfg.Metadata().Account, a.log, opts...)

	summary, runErr := exec.Run(ctx, cfg.Report)

	// Close with a fresh context so a timed-out run still flushes its rows
	if err := sink.Close(context.Background()); err != nil {
		a.log.Error("failed to close sink", zap.Error(err))
		if runErr == nil {
			return fmt.Errorf("failed to close sink: %w", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("report %q failed with status %d", cfg.Report, reporter.status)
	}

	stats := transport.GetStats()
	a.log.Debug("transport stats",
		zap.Int64("requests", stats.TotalRequests),
		zap.Int64("failed_requests", stats.FailedRequests))

	data, err := jsonpool.MarshalCompact(runOutput{Summary: summary, Transport: stats})
	if err == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), string(data))
	}
	return nil
}
