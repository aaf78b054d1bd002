// Package s3 opens the MinIO client that backs transcript archiving.
package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const initTimeout = 5 * time.Second

var errNoBucket = errors.New("bucket name is empty")

func NewClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %q: %w", endpoint, err)
	}

	return client, nil
}

// EnsureBucket creates the transcript bucket on first start.
func EnsureBucket(parentCtx context.Context, client *minio.Client, bucket string, log *slog.Logger) error {
	if bucket == "" {
		return errNoBucket
	}

	ctx, cancel := context.WithTimeout(parentCtx, initTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if exists {
		log.Debug("Bucket already exists", "bucket", bucket)
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	log.Info("Bucket created", "bucket", bucket, "endpoint", client.EndpointURL().Host)

	return nil
}
