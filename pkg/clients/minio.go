package clients

import (
	"context"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/jitter"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	bucketAttempts   = 5
	bucketBackoff    = 500 * time.Millisecond
	bucketMaxBackoff = 4 * time.Second
)

// NewMinIOClient создаёт клиент S3-совместимого хранилища изображений.
func NewMinIOClient(cfg *cfg.MinIOCfg) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return minioClient, nil
}

// EnsureBucket создаёт бакет для фотографий, если его ещё нет.
// Пока MinIO стартует, BucketExists повторяется с backoff.
func EnsureBucket(ctx context.Context, client *minio.Client, bucketName string) error {
	var exists bool
	err := jitter.Retry(ctx, bucketAttempts, bucketBackoff, bucketMaxBackoff, func(ctx context.Context) error {
		var err error
		exists, err = client.BucketExists(ctx, bucketName)
		return err
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		// бакет мог создать соседний экземпляр
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
