package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
	tu "github.com/ajitpratap0/nebula-domo/pkg/testutil"
)

func TestOffsetPaginationFollowsTotal(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, func(req *core.Request) (*core.Response, error) {
		body := decodeBody(t, req)
		offset := int(body["offset"].(float64))
		n := 100
		if offset == 200 {
			n = 50
		}
		return tu.RespondJSON(map[string]interface{}{"results": items(offset, n), "totalHits": 250}), nil
	})

	ctx, cancel := tu.TestContext(t)
	defer cancel()

	summary, err := f.executor.Run(ctx, "Functions")
	require.NoError(t, err)

	reqs := f.transport.Requests()
	require.Len(t, reqs, 3)
	for i, want := range []float64{0, 100, 200} {
		assert.Equal(t, want, decodeBody(t, reqs[i])["offset"])
	}
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 250, summary.Rows)
	assert.Len(t, f.sink.Batches(), 3)
	assert.Empty(t, f.reporter.Calls())
}

func TestOffsetPaginationRequestShape(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")},
		tu.Queue(tu.RespondJSON(map[string]interface{}{"results": []interface{}{}})))

	_, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)

	req := f.transport.Requests()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://acme.domo.com/api/search", req.URL)
	assert.Equal(t, "tok123", req.Headers[DeveloperTokenHeader])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
}

func TestOffsetPaginationEmptyFirstPage(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")},
		tu.Queue(tu.RespondJSON(map[string]interface{}{"results": []interface{}{}, "totalHits": 0})))

	summary, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)
	assert.Zero(t, summary.Rows)
	assert.Empty(t, f.sink.Rows())
	assert.Empty(t, f.reporter.Calls())
	assert.Len(t, f.transport.Requests(), 1)
}

func TestOffsetPaginationMissingItemsPath(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")},
		tu.Queue(tu.RespondJSON(map[string]interface{}{"other": 1})))

	summary, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)
	assert.Zero(t, summary.Rows)
	assert.Empty(t, f.reporter.Calls())
}

func TestOffsetPaginationWithoutTotalStopsOnShortPage(t *testing.T) {
	report := offsetReport("Functions")
	report.Offset.TotalPath = ""
	report.Offset.Limit = 2

	f := newFixture(t, catalog{"Functions": report}, tu.Queue(
		tu.RespondJSON(map[string]interface{}{"results": items(0, 2)}),
		tu.RespondJSON(map[string]interface{}{"results": items(2, 2)}),
		tu.RespondJSON(map[string]interface{}{"results": items(4, 1)}),
	))

	summary, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Rows)
	assert.Len(t, f.transport.Requests(), 3)
}

func TestOffsetPaginationCustomPredicate(t *testing.T) {
	report := offsetReport("Functions")
	var seen []Page
	report.Offset.HasMore = func(p Page) bool {
		seen = append(seen, p)
		return p.Page < 1
	}

	f := newFixture(t, catalog{"Functions": report}, func(*core.Request) (*core.Response, error) {
		return tu.RespondJSON(map[string]interface{}{"results": items(0, 100), "totalHits": 1000}), nil
	})

	_, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, 100, seen[1].Offset)
	assert.Equal(t, 200, seen[1].TotalSeen)
	assert.Equal(t, 1000, seen[1].Total)
	assert.True(t, seen[1].HasTotal)
}

func TestOffsetPaginationHTTPErrorHalts(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, tu.Queue(
		tu.RespondJSON(map[string]interface{}{"results": items(0, 100), "totalHits": 300}),
		tu.Respond(http.StatusServiceUnavailable, "down"),
	))

	summary, err := f.executor.Run(context.Background(), "Functions")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
	assert.Equal(t, 100, summary.Rows)
	assert.Equal(t, []tu.ReportedError{{Status: 503, Message: "HTTP 503"}}, f.reporter.Calls())
	assert.Len(t, f.transport.Requests(), 2)
}

func TestTransformFailureEmitsRawItems(t *testing.T) {
	for name, transform := range map[string]TransformFunc{
		"error": func([]interface{}, Page) ([]interface{}, error) {
			return nil, fmt.Errorf("bad shape")
		},
		"panic": func(items []interface{}, _ Page) ([]interface{}, error) {
			_ = items[0].(string)
			return items, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			report := offsetReport("Functions")
			report.Offset.Transform = transform
			f := newFixture(t, catalog{"Functions": report},
				tu.Queue(tu.RespondJSON(map[string]interface{}{"results": items(0, 3), "totalHits": 3})))

			summary, err := f.executor.Run(context.Background(), "Functions")
			require.NoError(t, err)
			assert.Equal(t, 3, summary.Rows)
			assert.Empty(t, f.reporter.Calls())
		})
	}
}

func TestRowsAreFlattened(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, tu.Queue(
		tu.RespondJSON(map[string]interface{}{
			"results": []interface{}{map[string]interface{}{
				"id":    "f1",
				"args":  []interface{}{1, 2},
				"owner": map[string]interface{}{"groups": []interface{}{"x"}},
			}},
			"totalHits": 1,
		}),
	))

	_, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)

	got := f.sink.Rows()
	require.Len(t, got, 1)
	assert.Equal(t, "[1,2]", got[0]["args"])
	assert.Equal(t, `["x"]`, got[0]["owner"].(map[string]interface{})["groups"])
}

func TestUnknownReport(t *testing.T) {
	f := newFixture(t, catalog{}, tu.Queue())

	_, err := f.executor.Run(context.Background(), "Dashboards")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
	assert.Equal(t, []tu.ReportedError{{Status: 0, Message: "Dashboards is not a supported report"}}, f.reporter.Calls())
	assert.Empty(t, f.transport.Requests())
}

func TestUnsupportedMode(t *testing.T) {
	f := newFixture(t, catalog{"Odd": {Name: "Odd", Mode: "streaming", Endpoint: "/x"}}, tu.Queue())

	_, err := f.executor.Run(context.Background(), "Odd")
	require.Error(t, err)
	assert.Equal(t, []tu.ReportedError{{Status: 500, Message: "Unsupported mode for report: Odd"}}, f.reporter.Calls())
}

func TestCustomExecuteWinsOverMode(t *testing.T) {
	report := offsetReport("Custom")
	report.Execute = func(ctx context.Context, run *Run) error {
		res := run.Poster.Post(ctx, map[string]interface{}{"custom": true})
		if !res.OK() {
			return res.Err
		}
		return run.Emit(ctx, map[string]interface{}{"from": "custom"})
	}

	f := newFixture(t, catalog{"Custom": report}, tu.Queue(tu.RespondJSON(map[string]interface{}{})))

	summary, err := f.executor.Run(context.Background(), "Custom")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rows)
	assert.Equal(t, true, decodeBody(t, f.transport.Requests()[0])["custom"])
}

func TestPanicIsReportedAsUnexpected(t *testing.T) {
	report := &ReportConfig{Name: "Boom", Execute: func(context.Context, *Run) error {
		panic("boom")
	}}
	f := newFixture(t, catalog{"Boom": report}, tu.Queue())

	_, err := f.executor.Run(context.Background(), "Boom")
	require.Error(t, err)
	assert.Equal(t, []tu.ReportedError{{Status: 500, Message: "Unexpected error: boom"}}, f.reporter.Calls())
}

func TestSinkFailureIsFatal(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, func(*core.Request) (*core.Response, error) {
		return tu.RespondJSON(map[string]interface{}{"results": items(0, 100), "totalHits": 500}), nil
	})
	f.sink.Err = fmt.Errorf("disk full")

	_, err := f.executor.Run(context.Background(), "Functions")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))

	calls := f.reporter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 500, calls[0].Status)
	assert.True(t, strings.HasPrefix(calls[0].Message, "Sink ingestion failed"))
	assert.Len(t, f.transport.Requests(), 1)
}

func TestCancelledContextStopsRun(t *testing.T) {
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, tu.Queue())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.executor.Run(ctx, "Functions")
	require.Error(t, err)
	assert.Len(t, f.reporter.Calls(), 1)
	assert.Empty(t, f.transport.Requests())
}

func TestBaseURLOverrideAndMetrics(t *testing.T) {
	collector := metrics.NewCollector("exec")
	f := newFixture(t, catalog{"Functions": offsetReport("Functions")}, tu.Queue(
		tu.RespondJSON(map[string]interface{}{"results": items(0, 4), "totalHits": 4}),
	), WithBaseURL("http://localhost:9999/api/"), WithMetrics(collector))

	_, err := f.executor.Run(context.Background(), "Functions")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api/search", f.transport.Requests()[0].URL)

	count, err := testutil.GatherAndCount(collector.Registry(), "exec_rows_emitted_total", "exec_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
