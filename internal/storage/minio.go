package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

// MinioUploader writes resumes to an S3-compatible bucket.
type MinioUploader struct {
	client *miniogo.Client
	cfg    common.StorageConfig
	logger *zap.Logger
}

// NewMinioUploader creates the storage client. It does not touch the network.
func NewMinioUploader(cfg common.StorageConfig, logger *zap.Logger) (*MinioUploader, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("storage.init",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("presigned", cfg.PresignExpiry > 0),
	)
	return &MinioUploader{client: client, cfg: cfg, logger: logger}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, miniogo.MakeBucketOptions{Region: u.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.cfg.Bucket, err)
	}
	u.logger.Info("storage.bucket.created", zap.String("bucket", u.cfg.Bucket))
	return nil
}

// Upload puts the document under folder/filename and returns its retrieval URL.
// Existing objects with the same key are overwritten.
func (u *MinioUploader) Upload(ctx context.Context, folder, filename string, data []byte) (string, error) {
	start := time.Now()
	key := ObjectKey(folder, filename)
	contentType := ContentType(filename)

	_, err := u.client.PutObject(
		ctx,
		u.cfg.Bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		miniogo.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"original-filename": filename,
				"batch-folder":      folder,
			},
		},
	)
	if err != nil {
		u.logger.Error("storage.upload.failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	publicURL, err := u.objectURL(ctx, key)
	if err != nil {
		return "", err
	}

	u.logger.Info("storage.upload.ok",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return publicURL, nil
}

func (u *MinioUploader) objectURL(ctx context.Context, key string) (string, error) {
	if u.cfg.PresignExpiry > 0 {
		signed, err := u.client.PresignedGetObject(ctx, u.cfg.Bucket, key, u.cfg.PresignExpiry, nil)
		if err != nil {
			return "", fmt.Errorf("presign %s: %w", key, err)
		}
		return signed.String(), nil
	}
	base := u.cfg.PublicBaseURL
	if base == "" {
		base = u.client.EndpointURL().String()
	}
	return PublicObjectURL(base, u.cfg.Bucket, key), nil
}
