// Package gcs provides a sink that streams a run's rows into one Google Cloud
// Storage object
package gcs

import (
	"context"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/nebula-domo/pkg/compression"
	"github.com/ajitpratap0/nebula-domo/pkg/config"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/destinations/compressed"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/logger"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// ObjectAttrs are the object properties set when the upload starts
type ObjectAttrs struct {
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// OpenFunc starts an upload of the named object
type OpenFunc func(ctx context.Context, name string, attrs ObjectAttrs) io.WriteCloser

// GCSSink streams encoded rows to an object writer. The object is created
// on the first non-empty batch.
type GCSSink struct {
	mu       sync.Mutex
	bucket   string
	name     string
	settings compressed.Settings
	open     OpenFunc
	client   *storage.Client
	object   io.WriteCloser
	writer   *compressed.RowWriter
	closed   bool
	start    time.Time
	logger   *zap.Logger
}

// NewGCSSink creates a storage client using cfg.Sink.CredentialsFile, or the
// application default credentials when it is empty
func NewGCSSink(ctx context.Context, cfg *config.BaseConfig) (*GCSSink, error) {
	if cfg.Sink.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "gcs sink requires sink.bucket")
	}

	var opts []option.ClientOption
	if cfg.Sink.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Sink.CredentialsFile))
	}
	if cfg.Sink.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Sink.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}

	bucket := client.Bucket(cfg.Sink.Bucket)
	open := func(ctx context.Context, name string, attrs ObjectAttrs) io.WriteCloser {
		w := bucket.Object(name).NewWriter(ctx)
		w.ContentType = attrs.ContentType
		w.ContentEncoding = attrs.ContentEncoding
		w.Metadata = attrs.Metadata
		return w
	}

	s, err := NewGCSSinkWithOpener(cfg, open, time.Now())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.client = client
	return s, nil
}

// NewGCSSinkWithOpener builds the sink around open. The object name is fixed
// from now.
func NewGCSSinkWithOpener(cfg *config.BaseConfig, open OpenFunc, now time.Time) (*GCSSink, error) {
	settings, err := compressed.SettingsFrom(cfg.Sink)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gcs sink settings")
	}
	return &GCSSink{
		bucket:   cfg.Sink.Bucket,
		name:     settings.ObjectName(cfg.Sink.Prefix, cfg.Report, now),
		settings: settings,
		open:     open,
		logger:   logger.Get().With(zap.String("component", "gcs_sink"), zap.String("bucket", cfg.Sink.Bucket)),
	}, nil
}

// ObjectName returns the name of the object rows are written to
func (s *GCSSink) ObjectName() string {
	return s.name
}

// Ingest implements core.Sink
func (s *GCSSink) Ingest(ctx context.Context, batch []rows.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if s.writer == nil {
		attrs := ObjectAttrs{
			ContentType:     "application/x-ndjson",
			ContentEncoding: compression.ContentEncoding(s.settings.Algorithm),
			Metadata:        map[string]string{"compression": string(s.settings.Algorithm)},
		}
		if s.settings.Format == compressed.FormatArray {
			attrs.ContentType = "application/json"
		}
		s.object = s.open(ctx, s.name, attrs)
		w, err := compressed.NewRowWriter(s.object, s.settings)
		if err != nil {
			return err
		}
		s.writer = w
		s.start = time.Now()
	}

	if err := s.writer.Write(batch); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write to GCS")
	}
	return nil
}

// Close finalizes the object and releases the client
func (s *GCSSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.writer != nil {
		if err = s.writer.Close(); err != nil {
			_ = s.object.Close()
			err = errors.Wrap(err, errors.ErrorTypeSink, "failed to finish GCS object")
		} else if err = s.object.Close(); err != nil {
			err = errors.Wrap(err, errors.ErrorTypeSink, "failed to close GCS writer")
		} else {
			s.logger.Info("rows uploaded to GCS",
				zap.String("object", s.name),
				zap.Int64("rows", s.writer.Rows()),
				zap.Duration("duration", time.Since(s.start)))
		}
	} else {
		s.logger.Info("no rows to upload")
	}

	if s.client != nil {
		if cerr := s.client.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}
	return err
}
