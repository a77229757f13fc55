package connector_test

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/memory"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/executor"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/reports"
	"github.com/ajitpratap0/nebula-domo/pkg/testutil"
)

// Example runs the Functions report against a scripted transport.
func Example() {
	transport := testutil.NewFakeTransport(testutil.Queue(
		testutil.RespondJSON(map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"name": "SUM", "args": []interface{}{"x"}},
				map[string]interface{}{"name": "AVG"},
			},
			"totalHits": 2,
		}),
	))
	sink := memory.NewMemorySink(0)
	reporter := core.ReporterFunc(func(status int, message string) {
		fmt.Printf("error %d: %s\n", status, message)
	})

	exec := executor.New(registry.GetRegistry(),
		executor.Host{Transport: transport, Sink: sink, Reporter: reporter},
		core.Account{AccessToken: "token", Instance: "acme"},
		zap.NewNop())

	summary, err := exec.Run(context.Background(), "Functions")
	if err != nil {
		return
	}

	fmt.Println(transport.Requests()[0].URL)
	fmt.Printf("pages=%d rows=%d\n", summary.Pages, summary.Rows)
	for _, row := range sink.Rows() {
		fmt.Println(row["name"], row["args"])
	}

	// Output:
	// https://acme.domo.com/api/query/v1/functions/search
	// pages=1 rows=2
	// SUM ["x"]
	// AVG <nil>
}
