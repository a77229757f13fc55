// Package config provides the configuration of a connector run.
//
// The configuration is organized into logical sections:
//   - Account: Domo credentials and instance
//   - Timeouts: request, connection and whole-run limits
//   - HTTP: transport tuning
//   - Sink: where flattened rows are written
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg := config.NewBaseConfig("approvals")
//	cfg.Account.Instance = "acme"
//	cfg.Account.AccessToken = os.Getenv("DOMO_ACCESS_TOKEN")
//	cfg.Report = "Approvals"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
)

const (
	// AuthTypeDeveloperToken sends the access token as X-DOMO-Developer-Token
	AuthTypeDeveloperToken = "developer_token"
	// AuthTypeOAuth2 fetches a bearer token with the client credentials grant
	AuthTypeOAuth2 = "oauth2"
)

// BaseConfig is the configuration of one connector run
type BaseConfig struct {
	// Name identifies the run in logs and metrics
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	// Account selects the Domo instance and credentials
	Account AccountConfig `yaml:"account" json:"account"`

	// Report is the name of the report to execute
	Report string `yaml:"report" json:"report"`

	Timeouts      TimeoutConfig       `yaml:"timeouts" json:"timeouts"`
	HTTP          HTTPConfig          `yaml:"http" json:"http"`
	Sink          SinkConfig          `yaml:"sink" json:"sink"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// AccountConfig holds the account fields the host passes in as metadata
type AccountConfig struct {
	AccessToken string `yaml:"access_token" json:"access_token"`
	Instance    string `yaml:"instance" json:"instance"`
	// BaseURL overrides https://<instance>.domo.com/api
	BaseURL string `yaml:"base_url" json:"base_url"`

	AuthType     string   `yaml:"auth_type" json:"auth_type"`
	ClientID     string   `yaml:"client_id" json:"client_id"`
	ClientSecret string   `yaml:"client_secret" json:"client_secret"`
	TokenURL     string   `yaml:"token_url" json:"token_url"`
	Scopes       []string `yaml:"scopes" json:"scopes"`
}

// TimeoutConfig contains all timeout-related settings
type TimeoutConfig struct {
	// Request bounds a single HTTP round trip
	Request time.Duration `yaml:"request" json:"request"`
	// Connection bounds dialing and the TLS handshake
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Run bounds a whole report execution
	Run time.Duration `yaml:"run" json:"run"`
}

// HTTPConfig tunes the outbound HTTP client
type HTTPConfig struct {
	EnableHTTP2        bool   `yaml:"enable_http2" json:"enable_http2"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
	MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	UserAgent          string `yaml:"user_agent" json:"user_agent"`
}

// SinkConfig selects and configures the row sink. Only the fields of the
// selected type are read.
type SinkConfig struct {
	// Type is a registered sink name (json, csv, s3, gcs, postgres, mongodb,
	// bigquery, snowflake, kafka, memory)
	Type string `yaml:"type" json:"type"`

	// File sinks
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"` // lines or array

	// Compression applies to file and object-store sinks
	Compression      string `yaml:"compression" json:"compression"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`

	// Object-store sinks
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`

	// Database sinks
	DSN        string `yaml:"dsn" json:"dsn"`
	Database   string `yaml:"database" json:"database"`
	Table      string `yaml:"table" json:"table"`
	Collection string `yaml:"collection" json:"collection"`

	// BigQuery sink; Database names the dataset and Region its location
	Project string `yaml:"project" json:"project"`

	// Kafka sink
	Brokers  []string `yaml:"brokers" json:"brokers"`
	Topic    string   `yaml:"topic" json:"topic"`
	KeyField string   `yaml:"key_field" json:"key_field"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" json:"log_level"`
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	Development bool   `yaml:"development" json:"development"`

	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsFile receives a Prometheus text-format dump when the run ends
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`

	EnableTracing     bool    `yaml:"enable_tracing" json:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// NewBaseConfig creates a new BaseConfig with sensible defaults
func NewBaseConfig(name string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Version: "1.0.0",
		Account: AccountConfig{
			AuthType: AuthTypeDeveloperToken,
		},
		Timeouts: TimeoutConfig{
			Request:    60 * time.Second,
			Connection: 10 * time.Second,
			Run:        30 * time.Minute,
		},
		HTTP: HTTPConfig{
			EnableHTTP2:  true,
			MaxIdleConns: 10,
			UserAgent:    "nebula-domo/1.0",
		},
		Sink: SinkConfig{
			Type:   "json",
			Path:   "-",
			Format: "lines",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			EnableMetrics:     false,
			EnableTracing:     false,
			TracingSampleRate: 1.0,
		},
	}
}

// Validate validates the configuration for correctness
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := bc.Account.Validate(); err != nil {
		return err
	}
	if bc.Timeouts.Request <= 0 {
		return fmt.Errorf("timeouts.request must be positive")
	}
	if bc.Timeouts.Run < 0 {
		return fmt.Errorf("timeouts.run cannot be negative")
	}
	if bc.Sink.Type == "" {
		return fmt.Errorf("sink.type is required")
	}
	if r := bc.Observability.TracingSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("tracing_sample_rate must be between 0 and 1")
	}
	return nil
}

// Validate checks that enough account data is present to reach the API
func (a *AccountConfig) Validate() error {
	if a.Instance == "" && a.BaseURL == "" {
		return fmt.Errorf("account.instance is required")
	}
	switch a.AuthType {
	case "", AuthTypeDeveloperToken:
		if a.AccessToken == "" {
			return fmt.Errorf("account.access_token is required")
		}
	case AuthTypeOAuth2:
		if a.ClientID == "" || a.ClientSecret == "" {
			return fmt.Errorf("account.client_id and account.client_secret are required for oauth2")
		}
	default:
		return fmt.Errorf("unsupported account.auth_type %q", a.AuthType)
	}
	return nil
}

// APIBaseURL returns the API root for the account without a trailing slash
func (a *AccountConfig) APIBaseURL() string {
	if a.BaseURL != "" {
		return strings.TrimRight(a.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.domo.com/api", a.Instance)
}

// OAuthTokenURL returns the token endpoint for the client credentials grant
func (a *AccountConfig) OAuthTokenURL() string {
	if a.TokenURL != "" {
		return a.TokenURL
	}
	return "https://api.domo.com/oauth/token"
}

// IsOAuth2 reports whether bearer tokens replace the developer token
func (a *AccountConfig) IsOAuth2() bool {
	return a.AuthType == AuthTypeOAuth2
}

// Metadata converts the configuration into run metadata
func (bc *BaseConfig) Metadata() core.Metadata {
	return core.Metadata{
		Account: core.Account{
			AccessToken: bc.Account.AccessToken,
			Instance:    bc.Account.Instance,
		},
		Report: bc.Report,
	}
}
