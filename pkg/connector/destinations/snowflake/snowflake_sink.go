// Package snowflake loads report rows into a Snowflake table whose data
// column is a VARIANT parsed from each row's JSON document.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// DefaultTable receives rows when sink.table is empty
const DefaultTable = "DOMO_REPORT_ROWS"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// DB is the subset of *sql.DB used by the sink
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SnowflakeSink inserts each batch with a single INSERT ... SELECT
type SnowflakeSink struct {
	mu       sync.Mutex
	db       DB
	release  func() error
	table    string
	report   string
	inserted int64
	closed   bool
	logger   *zap.Logger
}

// NewSnowflakeSink opens a connection on sink.dsn
// (user:password@account/database/schema?warehouse=WH) and creates the table
// if needed.
func NewSnowflakeSink(ctx context.Context, cfg *config.BaseConfig) (*SnowflakeSink, error) {
	if cfg.Sink.DSN == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "snowflake sink requires sink.dsn")
	}
	if _, err := sf.ParseDSN(cfg.Sink.DSN); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake dsn")
	}

	db, err := sql.Open("snowflake", cfg.Sink.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to open snowflake connection")
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to reach snowflake")
	}

	s, err := NewSnowflakeSinkWithDB(ctx, cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.release = db.Close
	return s, nil
}

// NewSnowflakeSinkWithDB uses an existing connection
func NewSnowflakeSinkWithDB(ctx context.Context, cfg *config.BaseConfig, db DB) (*SnowflakeSink, error) {
	table := cfg.Sink.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, errors.New(errors.ErrorTypeConfig, "invalid snowflake table name").WithDetail("table", table)
	}

	s := &SnowflakeSink{
		db:     db,
		table:  table,
		report: cfg.Report,
		logger: logger.Get().With(zap.String("component", "snowflake_sink"), zap.String("table", table)),
	}

	if _, err := db.ExecContext(ctx, CreateTableSQL(table)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create snowflake table")
	}
	return s, nil
}

// CreateTableSQL returns the DDL for the target table
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	report STRING NOT NULL,
	ingested_at TIMESTAMP_TZ NOT NULL DEFAULT CURRENT_TIMESTAMP(),
	data VARIANT NOT NULL
)`, table)
}

// InsertSQL returns a statement binding two values (report, json) per row.
// PARSE_JSON is not allowed in a VALUES clause, hence the SELECT.
func InsertSQL(table string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (report, data) SELECT column1, PARSE_JSON(column2) FROM VALUES ", table)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?)")
	}
	return b.String()
}

// Ingest implements core.Sink
func (s *SnowflakeSink) Ingest(ctx context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeSink, "snowflake sink is closed")
	}
	if len(batch) == 0 {
		return nil
	}

	args := make([]any, 0, 2*len(batch))
	for _, row := range batch {
		doc, err := jsonpool.MarshalCompact(row)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode row")
		}
		args = append(args, s.report, string(doc))
	}

	if _, err := s.db.ExecContext(ctx, InsertSQL(s.table, len(batch)), args...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to insert rows into snowflake").
			WithDetail("rows", len(batch))
	}
	s.inserted += int64(len(batch))
	return nil
}

// Inserted returns the number of rows inserted
func (s *SnowflakeSink) Inserted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Close releases the connection pool
func (s *SnowflakeSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("snowflake sink closed", zap.Int64("rows", s.inserted))
	if s.release != nil {
		if err := s.release(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to close snowflake connection")
		}
	}
	return nil
}
