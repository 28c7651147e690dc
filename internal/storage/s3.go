package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for the object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// S3BlobStore implements BlobStore against any S3-compatible object
// store (AWS S3, MinIO).
type S3BlobStore struct {
	client *minio.Client
}

func NewS3BlobStore(config S3Config) (*S3BlobStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &S3BlobStore{client: client}, nil
}

// EnsureBucket creates the bucket if it does not exist yet, called once
// at startup.
func (s *S3BlobStore) EnsureBucket(ctx context.Context, bucket, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *S3BlobStore) Put(ctx context.Context, input PutInput) error {
	_, err := s.client.PutObject(ctx, input.Bucket, input.Key, input.Body, input.Size, minio.PutObjectOptions{
		ContentType: input.ContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// Remove deletes the object. Removing a missing object succeeds, which
// keeps material deletion idempotent.
func (s *S3BlobStore) Remove(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// PresignedGetURL returns a time-limited download URL so material bytes
// are served by the object store, not this service.
func (s *S3BlobStore) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object URL: %w", err)
	}
	return u.String(), nil
}
