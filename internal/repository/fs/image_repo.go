package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

const tmpPrefix = ".upload-"

// ImageRepo хранит изображения в локальной директории.
type ImageRepo struct {
	root string
}

// NewImageRepo создаёт директорию хранилища, если её нет.
func NewImageRepo(root string) (*ImageRepo, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &ImageRepo{root: root}, nil
}

// Upload записывает файл во временный файл и атомарно переименовывает его.
func (i *ImageRepo) Upload(_ context.Context, image *domain.Image) (string, error) {
	path, err := i.path(image.Key)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	tmp, err := os.CreateTemp(i.root, tmpPrefix+"*")
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(image.Bytes); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return image.Key, nil
}

// Delete удаляет файл. Отсутствующий файл не является ошибкой.
func (i *ImageRepo) Delete(_ context.Context, key string) error {
	path, err := i.path(key)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (i *ImageRepo) Open(_ context.Context, key string) (io.ReadSeekCloser, *domain.Image, error) {
	path, err := i.path(key)
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), e.ErrImageNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, e.Wrap(whereami.WhereAmI(), e.ErrImageNotFound)
		}
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, e.Wrap(whereami.WhereAmI(), e.ErrImageNotFound)
	}

	return f, &domain.Image{
		Key:         key,
		Size:        info.Size(),
		ContentType: domain.ContentTypeByExt(domain.ImageExt(key)),
		ModTime:     info.ModTime(),
	}, nil
}

// List перечисляет сохранённые файлы, пропуская временные и скрытые.
func (i *ImageRepo) List(_ context.Context) ([]domain.Image, error) {
	entries, err := os.ReadDir(i.root)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	images := make([]domain.Image, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// файл удалён между ReadDir и Info
			continue
		}

		images = append(images, domain.Image{
			Key:     entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return images, nil
}

// Ping проверяет, что директория хранилища существует.
func (i *ImageRepo) Ping(_ context.Context) error {
	info, err := os.Stat(i.root)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %s is not a directory", whereami.WhereAmI(), i.root)
	}

	return nil
}

// path возвращает путь к файлу, не допуская выхода за пределы root.
func (i *ImageRepo) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid image key %q", key)
	}

	return filepath.Join(i.root, key), nil
}
