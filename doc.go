// Package domo is the root of the Domo report connector.
//
// The connector authenticates against a Domo instance, fetches governance
// reports (users, Beast Mode functions, approval requests and approval
// templates) through paginated REST and GraphQL APIs, flattens every record
// into a JSON row and hands the rows to a sink.
//
// # Quick Start
//
//	domo-connector list
//	domo-connector auth --instance acme --access-token $DOMO_ACCESS_TOKEN
//	domo-connector run Users --instance acme --access-token $DOMO_ACCESS_TOKEN \
//		--sink csv --output users.csv
//
// Settings can also come from a YAML file (--config), DOMO_* environment
// variables or a .env file:
//
//	name: nightly-approvals
//	account:
//	  instance: acme
//	  access_token: ${DOMO_ACCESS_TOKEN}
//	report: Approvals
//	sink:
//	  type: s3
//	  bucket: governance-exports
//	  prefix: domo
//	  compression: zstd
//
// # Packages
//
//   - cmd/domo-connector: the command line interface
//   - pkg/connector/executor: report execution strategies
//   - pkg/connector/reports: the report catalog
//   - pkg/connector/destinations: sinks
//   - pkg/auth: credential validation
//   - pkg/clients: the HTTP transport with optional OAuth2
//   - pkg/rows: path lookup and row flattening
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability:
//     ambient services
package domo
