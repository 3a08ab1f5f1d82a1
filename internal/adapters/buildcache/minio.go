package buildcache

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// minioStore uploads objects to an S3-compatible backend.
type minioStore struct {
	client *minio.Client
	bucket string
}

// newMinioStore initializes a MinIO client and ensures the bucket exists.
func newMinioStore(ctx context.Context, cfg domain.BuildCacheConfig) (*minioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, err.Error()), "endpoint", cfg.Endpoint)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "endpoint", cfg.Endpoint), "bucket", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "endpoint", cfg.Endpoint), "bucket", cfg.Bucket)
		}
	}
	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioStore) PutFile(ctx context.Context, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

var _ ports.BuildCacheFactory = Factory{}

// Factory opens build caches from configuration.
type Factory struct{}

// Open returns a disabled cache when cfg has no endpoint or bucket, and a
// MinIO backed cache otherwise.
func (Factory) Open(ctx context.Context, cfg domain.BuildCacheConfig) (ports.BuildCache, error) {
	if !cfg.Enabled() {
		return disabled{}, nil
	}
	store, err := newMinioStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCache(store, cfg.Prefix), nil
}
