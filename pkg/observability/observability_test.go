package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracing, err := InitTracing(TracingConfig{
		ServiceName:    "nebula-domo-test",
		ServiceVersion: "test",
		Environment:    "test",
		SamplingRate:   1.0,
		Writer:         &buf,
	})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "report.run", attribute.String("report", "Users"))
	span.SetAttribute("rows", 3)
	span.SetAttribute("done", true)
	span.AddEvent("page")

	headers := map[string]string{}
	InjectHeaders(ctx, headers)
	assert.Contains(t, headers, "traceparent")

	span.Fail(errors.New("boom"))
	span.End()

	require.NoError(t, tracing.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "report.run")
	assert.Contains(t, buf.String(), "boom")
}

func TestNilTracingShutdown(t *testing.T) {
	var tracing *Tracing
	assert.NoError(t, tracing.Shutdown(context.Background()))
}
