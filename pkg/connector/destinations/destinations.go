// Package destinations registers every sink implementation. Import it for
// side effects to make all sink types available through the registry.
package destinations

import (
	// Import all sinks to trigger init() registration
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/bigquery"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/csv"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/gcs"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/json"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/kafka"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/memory"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/mongodb"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/postgres"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/s3"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/snowflake"
)
