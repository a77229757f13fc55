package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
)

// ExampleNewBaseConfig demonstrates the defaults of a new configuration.
func ExampleNewBaseConfig() {
	cfg := config.NewBaseConfig("approvals")

	fmt.Printf("Auth: %s\n", cfg.Account.AuthType)
	fmt.Printf("Request Timeout: %s\n", cfg.Timeouts.Request)
	fmt.Printf("Sink: %s %s\n", cfg.Sink.Type, cfg.Sink.Format)

	// Output:
	// Auth: developer_token
	// Request Timeout: 1m0s
	// Sink: json lines
}

// ExampleBaseConfig_Validate shows how to validate a configuration
// before using it.
func ExampleBaseConfig_Validate() {
	cfg := config.NewBaseConfig("users")
	cfg.Account.Instance = "acme"
	cfg.Account.AccessToken = "abc123"
	cfg.Report = "Users"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println(cfg.Account.APIBaseURL())

	// Output:
	// https://acme.domo.com/api
}

// ExampleParse demonstrates loading YAML with environment variable
// substitution.
func ExampleParse() {
	os.Setenv("EXAMPLE_DOMO_TOKEN", "tok42")
	defer os.Unsetenv("EXAMPLE_DOMO_TOKEN")

	cfg := config.NewBaseConfig("from-yaml")
	err := config.Parse([]byte(`
account:
  instance: acme
  access_token: ${EXAMPLE_DOMO_TOKEN}
report: Functions
`), cfg)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Account.AccessToken, cfg.Report, cfg.Sink.Type)

	// Output:
	// tok42 Functions json
}
