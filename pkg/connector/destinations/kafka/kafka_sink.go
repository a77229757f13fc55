// Package kafka provides a sink that publishes each row as a JSON message
package kafka

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

const clientID = "domo-connector"

// KafkaSink sends one message per row with a sync producer
type KafkaSink struct {
	mu       sync.Mutex
	producer sarama.SyncProducer
	topic    string
	keyField string
	report   string
	sent     int64
	closed   bool
	logger   *zap.Logger
}

// NewKafkaSink connects a sync producer to cfg.Sink.Brokers
func NewKafkaSink(cfg *config.BaseConfig) (*KafkaSink, error) {
	if len(cfg.Sink.Brokers) == 0 || cfg.Sink.Topic == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "kafka sink requires sink.brokers and sink.topic")
	}

	saramaConfig, err := SaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Sink.Brokers, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create kafka producer")
	}
	return NewKafkaSinkWithProducer(cfg, producer), nil
}

// NewKafkaSinkWithProducer wraps an existing producer. The sink owns it and
// closes it on Close.
func NewKafkaSinkWithProducer(cfg *config.BaseConfig, producer sarama.SyncProducer) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		topic:    cfg.Sink.Topic,
		keyField: cfg.Sink.KeyField,
		report:   cfg.Report,
		logger:   logger.Get().With(zap.String("component", "kafka_sink"), zap.String("topic", cfg.Sink.Topic)),
	}
}

// SaramaConfig builds the producer configuration
func SaramaConfig(cfg *config.BaseConfig) (*sarama.Config, error) {
	c := sarama.NewConfig()
	c.ClientID = clientID
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 0
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	if cfg.Timeouts.Request > 0 {
		c.Producer.Timeout = cfg.Timeouts.Request
	}

	switch strings.ToLower(cfg.Sink.Compression) {
	case "", "none":
		c.Producer.Compression = sarama.CompressionNone
	case "gzip":
		c.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		c.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		c.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		c.Producer.Compression = sarama.CompressionZSTD
		c.Version = sarama.V2_1_0_0
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported kafka compression %q", cfg.Sink.Compression)
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid kafka configuration")
	}
	return c, nil
}

// Ingest implements core.Sink
func (s *KafkaSink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeSink, "kafka sink is closed")
	}
	if len(batch) == 0 {
		return nil
	}

	now := time.Now()
	msgs := make([]*sarama.ProducerMessage, 0, len(batch))
	for _, row := range batch {
		msg, err := s.message(row, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to publish rows to kafka")
	}
	s.sent += int64(len(msgs))
	s.logger.Debug("published rows", zap.Int("count", len(msgs)))
	return nil
}

func (s *KafkaSink) message(row rows.Row, now time.Time) (*sarama.ProducerMessage, error) {
	value, err := jsonpool.MarshalCompact(row)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode row")
	}

	msg := &sarama.ProducerMessage{
		Topic:     s.topic,
		Value:     sarama.ByteEncoder(value),
		Timestamp: now,
		Headers: []sarama.RecordHeader{
			{Key: []byte("report"), Value: []byte(s.report)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}
	if s.keyField != "" {
		if raw, ok := rows.Lookup(row, s.keyField); ok {
			if key, ok := rows.String(raw); ok {
				msg.Key = sarama.StringEncoder(key)
			}
		}
	}
	return msg, nil
}

// Sent returns the number of messages acknowledged
func (s *KafkaSink) Sent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Close closes the producer
func (s *KafkaSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("kafka sink closed", zap.Int64("messages", s.sent))
	if err := s.producer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to close kafka producer")
	}
	return nil
}
