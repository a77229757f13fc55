package executor

import (
	"testing"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/testutil"
)

type catalog map[string]*ReportConfig

func (c catalog) Report(name string) (*ReportConfig, bool) {
	cfg, ok := c[name]
	return cfg, ok
}

type fixture struct {
	transport *testutil.FakeTransport
	sink      *testutil.RecordingSink
	reporter  *testutil.Reporter
	executor  *Executor
}

func newFixture(t *testing.T, reports catalog, handler testutil.Handler, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		transport: testutil.NewFakeTransport(handler),
		sink:      &testutil.RecordingSink{},
		reporter:  &testutil.Reporter{},
	}
	f.executor = New(reports,
		Host{Transport: f.transport, Sink: f.sink, Reporter: f.reporter},
		core.Account{AccessToken: "tok123", Instance: "acme"},
		testutil.TestLogger(t),
		opts...)
	return f
}

func items(start, n int) []interface{} {
	out := make([]interface{}, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, map[string]interface{}{"id": float64(i), "tags": []interface{}{"a", "b"}})
	}
	return out
}

func decodeBody(t *testing.T, req *core.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := jsonpool.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	return body
}

func offsetReport(name string) *ReportConfig {
	return &ReportConfig{
		Name:     name,
		Mode:     ModeOffset,
		Endpoint: "/search",
		Offset: &OffsetConfig{
			Limit: 100,
			BuildRequest: func(offset, limit, page int) interface{} {
				return map[string]interface{}{"offset": offset, "limit": limit}
			},
			ItemsPath: "results",
			TotalPath: "totalHits",
		},
	}
}
