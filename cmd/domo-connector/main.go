package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"

	// Register the report catalog and all sinks
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/destinations"
	_ "github.com/ajitpratap0/nebula-domo/pkg/connector/reports"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DOMO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "domo-connector",
		Short: "Export Domo governance reports",
		Long: `domo-connector authenticates against a Domo instance, fetches a report
(users, Beast Mode functions, approvals, approval templates) and writes the
flattened rows to a sink.

Settings come from a YAML file (--config), DOMO_* environment variables, a
.env file in the working directory and command line flags, in increasing
order of precedence.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("instance", "", "Domo instance name (the part before .domo.com)")
	flags.String("access-token", "", "Domo developer access token")
	flags.String("base-url", "", "Override the API base URL")
	flags.String("sink", "", "Sink type (see 'list')")
	flags.String("output", "", "Output path for file sinks ('-' for stdout)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Duration("timeout", 0, "Timeout for the whole run")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	flags.Bool("tracing", false, "Export trace spans to stderr")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newVersionCmd(),
		newListCmd(),
		newAuthCmd(v),
		newRunCmd(v),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "domo-connector v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

type listedReport struct {
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	Description string `json:"description,omitempty"`
}

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available reports and sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reports := make([]listedReport, 0)
			for _, name := range registry.ListReports() {
				entry := listedReport{Name: name}
				if report, ok := registry.GetRegistry().Report(name); ok {
					entry.Mode = string(report.Mode)
					entry.Description = report.Description
				}
				reports = append(reports, entry)
			}

			if asJSON {
				data, err := jsonpool.MarshalIndent(map[string]interface{}{
					"reports": reports,
					"sinks":   registry.ListSinks(),
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, "Available Reports:")
			for _, r := range reports {
				if r.Description != "" {
					fmt.Fprintf(out, "  - %s (%s): %s\n", r.Name, r.Mode, r.Description)
					continue
				}
				fmt.Fprintf(out, "  - %s\n", r.Name)
			}
			fmt.Fprintln(out, "\nAvailable Sinks:")
			for _, name := range registry.ListSinks() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
