// Package registry keeps the report definitions and sink factories that can
// be selected by name from configuration.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/executor"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
)

// Registry manages report and sink registration
type Registry struct {
	reports map[string]*executor.ReportConfig
	sinks   map[string]SinkFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// SinkFactory creates a sink from the sink section of a configuration
type SinkFactory func(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error)

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		reports: make(map[string]*executor.ReportConfig),
		sinks:   make(map[string]SinkFactory),
		logger:  logger.Get().With(zap.String("component", "registry")),
	}
}

// RegisterReport validates and registers a report definition
func (r *Registry) RegisterReport(report *executor.ReportConfig) error {
	if err := report.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid report definition")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("report %s already registered", report.Name))
	}

	r.reports[report.Name] = report
	r.logger.Debug("report registered", zap.String("name", report.Name), zap.String("mode", string(report.Mode)))
	return nil
}

// Report implements executor.Catalog
func (r *Registry) Report(name string) (*executor.ReportConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[name]
	return report, ok
}

// ListReports returns the registered report names in sorted order
func (r *Registry) ListReports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.reports))
	for name := range r.reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSink registers a sink factory
func (r *Registry) RegisterSink(name string, factory SinkFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("sink %s already registered", name))
	}

	r.sinks[name] = factory
	r.logger.Debug("sink registered", zap.String("name", name))
	return nil
}

// CreateSink creates the sink selected by cfg.Sink.Type
func (r *Registry) CreateSink(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
	name := cfg.Sink.Type

	r.mu.RLock()
	factory, exists := r.sinks[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("sink %s not found", name))
	}

	sink, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create sink %s", name))
	}
	return sink, nil
}

// ListSinks returns the registered sink names in sorted order
func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Global registry functions

// RegisterReport registers a report in the global registry
func RegisterReport(report *executor.ReportConfig) error {
	return globalRegistry.RegisterReport(report)
}

// MustRegisterReport registers a report and panics on failure; for init()
func MustRegisterReport(report *executor.ReportConfig) {
	if err := RegisterReport(report); err != nil {
		panic(err)
	}
}

// RegisterSink registers a sink factory in the global registry
func RegisterSink(name string, factory SinkFactory) error {
	return globalRegistry.RegisterSink(name, factory)
}

// CreateSink creates a sink from the global registry
func CreateSink(ctx context.Context, cfg *config.BaseConfig) (core.Sink, error) {
	return globalRegistry.CreateSink(ctx, cfg)
}

// ListReports returns reports registered in the global registry
func ListReports() []string {
	return globalRegistry.ListReports()
}

// ListSinks returns sinks registered in the global registry
func ListSinks() []string {
	return globalRegistry.ListSinks()
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
