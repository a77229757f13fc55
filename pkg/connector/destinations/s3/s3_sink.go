// Package s3 provides a sink that uploads a run's rows to Amazon S3 (or an
// S3-compatible store) as a single, optionally compressed, JSON object.
package s3

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/compression"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

const (
	defaultRegion         = "us-east-1"
	defaultUploadPartSize = 5 * 1024 * 1024 // 5MB
	defaultConcurrency    = 4
)

// Uploader is the part of manager.Uploader the sink uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink buffers encoded rows and uploads them on Close
type S3Sink struct {
	mu       sync.Mutex
	bucket   string
	key      string
	settings compressed.Settings
	uploader Uploader
	buf      bytes.Buffer
	writer   *compressed.RowWriter
	closed   bool
	logger   *zap.Logger
}

// NewS3Sink loads the default AWS credential chain and creates an uploader
func NewS3Sink(ctx context.Context, cfg *config.BaseConfig) (*S3Sink, error) {
	if cfg.Sink.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3 sink requires sink.bucket")
	}

	region := cfg.Sink.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Sink.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Sink.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = defaultUploadPartSize
		u.Concurrency = defaultConcurrency
	})

	return NewS3SinkWithUploader(cfg, uploader, time.Now())
}

// NewS3SinkWithUploader builds the sink around an existing uploader. The
// object key is fixed from now.
func NewS3SinkWithUploader(cfg *config.BaseConfig, uploader Uploader, now time.Time) (*S3Sink, error) {
	settings, err := compressed.SettingsFrom(cfg.Sink)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid s3 sink settings")
	}

	s := &S3Sink{
		bucket:   cfg.Sink.Bucket,
		key:      settings.ObjectName(cfg.Sink.Prefix, cfg.Report, now),
		settings: settings,
		uploader: uploader,
		logger:   logger.Get().With(zap.String("component", "s3_sink"), zap.String("bucket", cfg.Sink.Bucket)),
	}
	s.writer, err = compressed.NewRowWriter(&s.buf, settings)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Key returns the object key the rows are uploaded to
func (s *S3Sink) Key() string {
	return s.key
}

// Ingest implements core.Sink
func (s *S3Sink) Ingest(_ context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Write(batch)
}

// Close uploads the object. Nothing is uploaded when no rows were written.
func (s *S3Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to finish s3 object")
	}
	if s.writer.Rows() == 0 {
		s.logger.Info("no rows to upload")
		return nil
	}

	start := time.Now()
	size := s.buf.Len()
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(s.buf.Bytes()),
		ContentType: aws.String(contentType(s.settings)),
		Metadata: map[string]string{
			"rows":        strconv.FormatInt(s.writer.Rows(), 10),
			"compression": string(s.settings.Algorithm),
		},
	}
	if enc := compression.ContentEncoding(s.settings.Algorithm); enc != "" {
		input.ContentEncoding = aws.String(enc)
	}

	result, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to upload to S3")
	}

	s.logger.Info("rows uploaded to S3",
		zap.String("location", result.Location),
		zap.Int64("rows", s.writer.Rows()),
		zap.Int("bytes", size),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func contentType(s compressed.Settings) string {
	if s.Format == compressed.FormatArray {
		return "application/json"
	}
	return "application/x-ndjson"
}
