// Package s3 stores attachment objects in S3-compatible object storage.
package s3

import (
	"context"
	"fmt"
	"io"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"attachment-manager-api/config"
	"attachment-manager-api/internal/domain/attachment"
)

type Disk struct {
	logger *zap.Logger
	client *minio.Client
	bucket string
	secure bool
}

func New(ctx context.Context, logger *zap.Logger, cfg config.S3) (*Disk, error) {
	if cfg.Endpoint == "" || cfg.BucketUploads == "" {
		return nil, fmt.Errorf("incomplete S3 config: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketUploads)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", cfg.BucketUploads)
	}

	logger.Info("s3 connected successfully", zap.String("bucket", cfg.BucketUploads))

	return &Disk{
		logger: logger,
		client: client,
		bucket: cfg.BucketUploads,
		secure: cfg.UseSSL,
	}, nil
}

func (d *Disk) Put(ctx context.Context, r io.Reader, size int64, suggestedName string) (string, error) {
	info, err := d.client.PutObject(ctx, d.bucket, suggestedName, r, size, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", attachment.ErrStorageFailure, err)
	}
	return info.Key, nil
}

func (d *Disk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get object: %v", attachment.ErrStorageFailure, err)
	}
	// GetObject is lazy; Stat forces the lookup so absent keys surface here
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", attachment.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: stat object: %v", attachment.ErrStorageFailure, err)
	}
	return obj, nil
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	if err := d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%w: remove object: %v", attachment.ErrStorageFailure, err)
	}
	return nil
}

func (d *Disk) PublicURL(key string) string {
	scheme := "https"
	if !d.secure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, d.client.EndpointURL().Host, d.bucket, key)
}
