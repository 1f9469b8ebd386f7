package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/RishiKendai/textscan/internal/tracing"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore keeps file content in a single S3 bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// EnsureBucket creates the bucket on first use.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	log.Info().Str("bucket", s.bucket).Msg("Created bucket")
	return nil
}

func (s *MinioStore) Put(ctx context.Context, id string, data []byte) error {
	ctx, span := tracing.Tracer().Start(ctx, "blob.put",
		trace.WithAttributes(
			attribute.String("file_id", id),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	opts := minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"}
	if _, err := s.client.PutObject(ctx, s.bucket, ObjectName(id), bytes.NewReader(data), int64(len(data)), opts); err != nil {
		span.RecordError(err)
		return fmt.Errorf("upload object %s: %w", id, err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, id string) ([]byte, error) {
	ctx, span := tracing.Tracer().Start(ctx, "blob.get",
		trace.WithAttributes(attribute.String("file_id", id)),
	)
	defer span.End()

	obj, err := s.client.GetObject(ctx, s.bucket, ObjectName(id), minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, s.mapError(id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		span.RecordError(err)
		return nil, s.mapError(id, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, ObjectName(id), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	return nil
}

func (s *MinioStore) mapError(id string, err error) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
		return fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("get object %s: %w", id, err)
}
