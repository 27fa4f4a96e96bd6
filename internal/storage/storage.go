package storage

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ktarasov/placehub/internal/config"
)

var keyCleaner = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Client stores place images in an S3-compatible bucket.
type Client struct {
	api    *minio.Client
	bucket string
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	api, err := minio.New(cfg.MINIO_ENDPOINT, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MINIO_ACCESS_KEY, cfg.MINIO_SECRET_KEY, ""),
		Secure: cfg.MINIO_USE_SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	c := &Client{api: api, bucket: cfg.MINIO_BUCKET}

	exists, err := api.BucketExists(ctx, c.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	return c, nil
}

// Put uploads the file under a fresh uuid-prefixed key derived from the
// sanitized original name and returns that key.
func (c *Client) Put(ctx context.Context, filename string, file []byte) (string, error) {
	key := fmt.Sprintf("%s-%s", uuid.NewString(), keyCleaner.ReplaceAllString(filename, ""))

	_, err := c.api.PutObject(ctx, c.bucket, key, bytes.NewReader(file), int64(len(file)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// Get returns a presigned URL for the stored object.
func (c *Client) Get(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	u, err := c.api.PresignedGetObject(ctx, c.bucket, key, expiresIn, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
