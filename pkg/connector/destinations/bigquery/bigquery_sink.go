// Package bigquery streams report rows into a BigQuery table with a fixed
// (report, ingested_at, data) layout. Row payloads land in a JSON column so
// reports with different shapes can share one table.
package bigquery

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

const (
	// DefaultDataset is used when sink.database is empty
	DefaultDataset = "domo"
	// DefaultTable is used when sink.table is empty
	DefaultTable = "domo_report_rows"
	// DefaultLocation is used when sink.region is empty
	DefaultLocation = "US"
)

// Inserter is the subset of *bigquery.Inserter used by the sink
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Schema returns the table layout shared by every report
func Schema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "report", Type: bigquery.StringFieldType, Required: true},
		{Name: "ingested_at", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "data", Type: bigquery.JSONFieldType, Required: true},
	}
}

// reportRow implements bigquery.ValueSaver
type reportRow struct {
	report     string
	ingestedAt time.Time
	data       string
}

func (r reportRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"report":      r.report,
		"ingested_at": r.ingestedAt,
		"data":        r.data,
	}, "", nil
}

// BigQuerySink streams each batch through the table inserter
type BigQuerySink struct {
	mu       sync.Mutex
	inserter Inserter
	release  func() error
	report   string
	now      func() time.Time
	inserted int64
	closed   bool
	logger   *zap.Logger
}

// NewBigQuerySink connects to sink.project, creating the dataset and table
// when they do not exist yet.
func NewBigQuerySink(ctx context.Context, cfg *config.BaseConfig) (*BigQuerySink, error) {
	if cfg.Sink.Project == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bigquery sink requires sink.project")
	}

	var opts []option.ClientOption
	if cfg.Sink.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Sink.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Sink.Project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create bigquery client")
	}

	table, err := ensureTable(ctx, client, cfg.Sink)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	s := NewBigQuerySinkWithInserter(cfg, table.Inserter(), time.Now)
	s.release = client.Close
	s.logger = s.logger.With(zap.String("table", table.FullyQualifiedName()))
	return s, nil
}

func ensureTable(ctx context.Context, client *bigquery.Client, sink config.SinkConfig) (*bigquery.Table, error) {
	datasetID := sink.Database
	if datasetID == "" {
		datasetID = DefaultDataset
	}
	tableID := sink.Table
	if tableID == "" {
		tableID = DefaultTable
	}
	location := sink.Region
	if location == "" {
		location = DefaultLocation
	}

	dataset := client.Dataset(datasetID)
	if _, err := dataset.Metadata(ctx); err != nil {
		if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create bigquery dataset").
				WithDetail("dataset", datasetID)
		}
	}

	table := dataset.Table(tableID)
	if _, err := table.Metadata(ctx); err != nil {
		meta := &bigquery.TableMetadata{
			Schema: Schema(),
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: "ingested_at",
			},
			Clustering: &bigquery.Clustering{Fields: []string{"report"}},
		}
		if err := table.Create(ctx, meta); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create bigquery table").
				WithDetail("table", tableID)
		}
	}
	return table, nil
}

// NewBigQuerySinkWithInserter uses an existing inserter. now stamps ingested_at.
func NewBigQuerySinkWithInserter(cfg *config.BaseConfig, inserter Inserter, now func() time.Time) *BigQuerySink {
	if now == nil {
		now = time.Now
	}
	return &BigQuerySink{
		inserter: inserter,
		report:   cfg.Report,
		now:      now,
		logger:   logger.Get().With(zap.String("component", "bigquery_sink")),
	}
}

// Ingest implements core.Sink
func (s *BigQuerySink) Ingest(ctx context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeSink, "bigquery sink is closed")
	}
	if len(batch) == 0 {
		return nil
	}

	at := s.now().UTC()
	savers := make([]bigquery.ValueSaver, 0, len(batch))
	for _, row := range batch {
		doc, err := jsonpool.MarshalCompact(row)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode row")
		}
		savers = append(savers, reportRow{report: s.report, ingestedAt: at, data: string(doc)})
	}

	if err := s.inserter.Put(ctx, savers); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to insert rows into bigquery").
			WithDetail("rows", len(savers))
	}
	s.inserted += int64(len(savers))
	return nil
}

// Inserted returns the number of rows streamed
func (s *BigQuerySink) Inserted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Close releases the client
func (s *BigQuerySink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("bigquery sink closed", zap.Int64("rows", s.inserted))
	if s.release != nil {
		if err := s.release(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to close bigquery client")
		}
	}
	return nil
}
