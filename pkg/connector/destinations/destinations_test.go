package destinations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

func TestAllSinksRegistered(t *testing.T) {
	sinks := registry.ListSinks()
	for _, name := range []string{"bigquery", "csv", "gcs", "json", "kafka", "memory", "mongodb", "postgres", "s3", "snowflake"} {
		assert.Contains(t, sinks, name)
	}
}
