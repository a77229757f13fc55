// Package postgres provides a sink that copies rows into a PostgreSQL table
// as jsonb documents, one table row per report row.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// DefaultTable receives rows when sink.table is empty
const DefaultTable = "domo_report_rows"

var copyColumns = []string{"report", "data"}

// DB is the subset of *pgxpool.Pool used by the sink
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresSink copies each batch with COPY FROM
type PostgresSink struct {
	mu      sync.Mutex
	db      DB
	release func()
	table   pgx.Identifier
	report  string
	copied  int64
	closed  bool
	logger  *zap.Logger
}

// NewPostgresSink opens a pool on cfg.Sink.DSN and creates the table if needed
func NewPostgresSink(ctx context.Context, cfg *config.BaseConfig) (*PostgresSink, error) {
	if cfg.Sink.DSN == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "postgres sink requires sink.dsn")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Sink.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgres dsn")
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create postgres pool")
	}

	s, err := NewPostgresSinkWithDB(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.release = pool.Close
	return s, nil
}

// NewPostgresSinkWithDB uses an existing connection
func NewPostgresSinkWithDB(ctx context.Context, cfg *config.BaseConfig, db DB) (*PostgresSink, error) {
	table := ParseTable(cfg.Sink.Table)
	s := &PostgresSink{
		db:     db,
		table:  table,
		report: cfg.Report,
		logger: logger.Get().With(zap.String("component", "postgres_sink"), zap.String("table", table.Sanitize())),
	}

	if _, err := db.Exec(ctx, CreateTableSQL(table)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create postgres table")
	}
	return s, nil
}

// ParseTable splits an optionally schema-qualified table name
func ParseTable(name string) pgx.Identifier {
	if name == "" {
		name = DefaultTable
	}
	return pgx.Identifier(strings.Split(name, "."))
}

// CreateTableSQL returns the DDL for the target table
func CreateTableSQL(table pgx.Identifier) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	report text NOT NULL,
	ingested_at timestamptz NOT NULL DEFAULT now(),
	data jsonb NOT NULL
)`, table.Sanitize())
}

// Ingest implements core.Sink
func (s *PostgresSink) Ingest(ctx context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeSink, "postgres sink is closed")
	}
	if len(batch) == 0 {
		return nil
	}

	values := make([][]any, 0, len(batch))
	for _, row := range batch {
		doc, err := jsonpool.MarshalCompact(row)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode row")
		}
		values = append(values, []any{s.report, doc})
	}

	n, err := s.db.CopyFrom(ctx, s.table, copyColumns, pgx.CopyFromRows(values))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to copy rows into postgres")
	}
	s.copied += n
	return nil
}

// Copied returns the number of rows copied
func (s *PostgresSink) Copied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied
}

// Close releases the pool
func (s *PostgresSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.release != nil {
		s.release()
	}
	s.logger.Info("postgres sink closed", zap.Int64("rows", s.copied))
	return nil
}
