package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
	nerrors "github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

func kafkaConfig() *config.BaseConfig {
	cfg := config.NewBaseConfig("t")
	cfg.Report = "Users"
	cfg.Sink.Type = "kafka"
	cfg.Sink.Brokers = []string{"localhost:9092"}
	cfg.Sink.Topic = "domo.users"
	cfg.Sink.KeyField = "id"
	return cfg
}

func TestKafkaSinkPublishesRows(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var got []*sarama.ProducerMessage
	check := func(msg *sarama.ProducerMessage) error {
		got = append(got, msg)
		return nil
	}
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(check)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(check)

	sink := NewKafkaSinkWithProducer(kafkaConfig(), producer)
	ctx := context.Background()
	require.NoError(t, sink.Ingest(ctx, []rows.Row{
		{"id": "u1", "name": "Ann"},
		{"id": float64(7)},
	}))
	require.NoError(t, sink.Ingest(ctx, nil))
	assert.EqualValues(t, 2, sink.Sent())

	require.Len(t, got, 2)
	assert.Equal(t, "domo.users", got[0].Topic)
	key, err := got[0].Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "u1", string(key))
	value, err := got[0].Value.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","name":"Ann"}`, string(value))
	key, err = got[1].Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "7", string(key))
	assert.Equal(t, []byte("Users"), got[0].Headers[0].Value)

	require.NoError(t, sink.Close(ctx))
	require.NoError(t, sink.Close(ctx))
}

func TestKafkaSinkWithoutKeyField(t *testing.T) {
	cfg := kafkaConfig()
	cfg.Sink.KeyField = ""
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Key != nil {
			return errors.New("unexpected key")
		}
		return nil
	})

	sink := NewKafkaSinkWithProducer(cfg, producer)
	require.NoError(t, sink.Ingest(context.Background(), []rows.Row{{"id": "u1"}}))
	require.NoError(t, sink.Close(context.Background()))
}

func TestKafkaSinkSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(kafkaConfig(), producer)
	err := sink.Ingest(context.Background(), []rows.Row{{"id": "u1"}})
	require.Error(t, err)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeSink))
	assert.EqualValues(t, 0, sink.Sent())
	require.NoError(t, sink.Close(context.Background()))
}

func TestSaramaConfig(t *testing.T) {
	cfg := kafkaConfig()
	cfg.Sink.Compression = "lz4"
	c, err := SaramaConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, sarama.CompressionLZ4, c.Producer.Compression)
	assert.True(t, c.Producer.Return.Successes)

	cfg.Sink.Compression = "brotli"
	_, err = SaramaConfig(cfg)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeConfig))
}

func TestNewKafkaSinkRequiresTopic(t *testing.T) {
	cfg := kafkaConfig()
	cfg.Sink.Topic = ""
	_, err := NewKafkaSink(cfg)
	assert.True(t, nerrors.IsType(err, nerrors.ErrorTypeConfig))
}
