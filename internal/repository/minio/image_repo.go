package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const noSuchKey = "NoSuchKey"

// ImageRepo реализует репозиторий изображений поверх MinIO.
type ImageRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewImageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ImageRepo {
	return &ImageRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает изображение в MinIO и возвращает ключ объекта.
func (i *ImageRepo) Upload(ctx context.Context, image *domain.Image) (string, error) {
	reader := bytes.NewReader(image.Bytes)

	info, err := i.mc.PutObject(ctx, i.cfg.BucketName, image.Key, reader, image.Size, minio.PutObjectOptions{
		ContentType: image.ContentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект из MinIO по указанному ключу. Отсутствующий объект не является ошибкой.
func (i *ImageRepo) Delete(ctx context.Context, key string) error {
	if err := i.mc.RemoveObject(ctx, i.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return nil
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Open открывает объект на чтение. minio.Object поддерживает Seek, что нужно для Range-запросов.
func (i *ImageRepo) Open(ctx context.Context, key string) (io.ReadSeekCloser, *domain.Image, error) {
	obj, err := i.mc.GetObject(ctx, i.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// GetObject ленивый: ошибка отсутствия объекта приходит только из Stat
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return nil, nil, e.Wrap(whereami.WhereAmI(), e.ErrImageNotFound)
		}
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return obj, &domain.Image{
		Key:         key,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}

// List перечисляет объекты бакета.
func (i *ImageRepo) List(ctx context.Context) ([]domain.Image, error) {
	var images []domain.Image
	for obj := range i.mc.ListObjects(ctx, i.cfg.BucketName, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), obj.Err)
		}

		images = append(images, domain.Image{
			Key:         obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			ModTime:     obj.LastModified,
		})
	}

	return images, nil
}

// Ping проверяет доступность бакета.
func (i *ImageRepo) Ping(ctx context.Context) error {
	exists, err := i.mc.BucketExists(ctx, i.cfg.BucketName)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return fmt.Errorf("%s: bucket %s does not exist", whereami.WhereAmI(), i.cfg.BucketName)
	}

	return nil
}
