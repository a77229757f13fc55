// Package mongodb provides a sink inserting rows as documents into a
// MongoDB collection
package mongodb

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

const (
	defaultDatabase   = "domo"
	defaultCollection = "report_rows"

	// MetaField holds the report name and ingestion time on every document
	MetaField = "_domo"
)

// Inserter is the part of *mongo.Collection used by the sink
type Inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoSink inserts each batch with an unordered InsertMany
type MongoSink struct {
	mu         sync.Mutex
	collection Inserter
	disconnect func(context.Context) error
	report     string
	inserted   int64
	closed     bool
	logger     *zap.Logger
}

// NewMongoSink connects to cfg.Sink.DSN and verifies the connection
func NewMongoSink(ctx context.Context, cfg *config.BaseConfig) (*MongoSink, error) {
	if cfg.Sink.DSN == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mongodb sink requires sink.dsn")
	}

	clientOpts := options.Client().ApplyURI(cfg.Sink.DSN)
	if cfg.Timeouts.Connection > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeouts.Connection)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to ping MongoDB")
	}

	database := cfg.Sink.Database
	if database == "" {
		database = defaultDatabase
	}
	collection := cfg.Sink.Collection
	if collection == "" {
		collection = defaultCollection
	}

	s := NewMongoSinkWithCollection(cfg, client.Database(database).Collection(collection))
	s.disconnect = client.Disconnect
	return s, nil
}

// NewMongoSinkWithCollection wraps an existing collection
func NewMongoSinkWithCollection(cfg *config.BaseConfig, collection Inserter) *MongoSink {
	return &MongoSink{
		collection: collection,
		report:     cfg.Report,
		logger:     logger.Get().With(zap.String("component", "mongodb_sink")),
	}
}

// Ingest implements core.Sink
func (s *MongoSink) Ingest(ctx context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeSink, "mongodb sink is closed")
	}
	if len(batch) == 0 {
		return nil
	}

	meta := bson.M{"report": s.report, "ingested_at": time.Now().UTC()}
	docs := make([]interface{}, 0, len(batch))
	for _, row := range batch {
		doc := make(bson.M, len(row)+1)
		for k, v := range row {
			doc[k] = v
		}
		doc[MetaField] = meta
		docs = append(docs, doc)
	}

	result, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if result != nil {
		s.inserted += int64(len(result.InsertedIDs))
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to insert rows into MongoDB")
	}
	return nil
}

// Inserted returns the number of documents inserted
func (s *MongoSink) Inserted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// Close disconnects the client
func (s *MongoSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("mongodb sink closed", zap.Int64("documents", s.inserted))
	if s.disconnect != nil {
		if err := s.disconnect(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to disconnect from MongoDB")
		}
	}
	return nil
}
