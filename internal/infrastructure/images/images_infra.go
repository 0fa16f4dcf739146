package images

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/infrastructure"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/jitter"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	cleanupAttempts    = 3
	cleanupBaseBackoff = time.Second
	cleanupMaxBackoff  = 8 * time.Second
)

// ImagesInfrastructure управляет жизненным циклом изображений товаров:
// проверкой, именованием, сохранением и фоновой очисткой.
type ImagesInfrastructure struct {
	imageRepo   usecase.ImageRepository
	cfg         *cfg.ImagesCfg
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	allowed     map[string]struct{}
}

func NewImagesInfrastructure(imageRepo usecase.ImageRepository, cfg *cfg.ImagesCfg, logger logger.Logger, shutdownCtx context.Context) *ImagesInfrastructure {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &ImagesInfrastructure{
		imageRepo:   imageRepo,
		cfg:         cfg,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		allowed:     allowed,
	}
}

// Validate проверяет расширение и размер файла, ничего не записывая.
func (m *ImagesInfrastructure) Validate(image *usecase.ProductImage) error {
	if _, ok := m.allowed[domain.ImageExt(image.Filename)]; !ok {
		return e.ErrUnsupportedImage
	}

	if m.cfg.MaxSize > 0 && int64(len(image.Data)) > m.cfg.MaxSize {
		return e.ErrFileTooLarge
	}

	return nil
}

// StoreImage сохраняет изображение под новым именем <uuid>.<ext> и возвращает публичный путь.
func (m *ImagesInfrastructure) StoreImage(ctx context.Context, image *usecase.ProductImage) (string, error) {
	const op = "ImagesInfrastructure.StoreImage"

	if err := m.Validate(image); err != nil {
		return "", e.Wrap(op, err)
	}

	ext := domain.ImageExt(image.Filename)
	key := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	img := domain.NewImage(key, image.Data, infrastructure.DetectImageContentType(image.Data, ext))

	stored, err := m.imageRepo.Upload(ctx, img)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return m.URL(stored), nil
}

// RemoveImage удаляет файл по публичному пути. Отсутствующий файл не считается ошибкой.
func (m *ImagesInfrastructure) RemoveImage(ctx context.Context, url string) error {
	const op = "ImagesInfrastructure.RemoveImage"

	key, ok := m.KeyFromURL(url)
	if !ok {
		m.logger.Warnf("%s: skipping image with unexpected url %q", op, url)
		return nil
	}

	if err := m.imageRepo.Delete(ctx, key); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// OpenImage открывает файл по имени из URL. Небезопасные имена считаются отсутствующими.
func (m *ImagesInfrastructure) OpenImage(ctx context.Context, name string) (*usecase.ImageObject, error) {
	const op = "ImagesInfrastructure.OpenImage"

	if !m.isValidKey(name) {
		return nil, e.Wrap(op, e.ErrImageNotFound)
	}

	body, info, err := m.imageRepo.Open(ctx, name)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeByExt(domain.ImageExt(name))
	}

	return &usecase.ImageObject{
		Body:        body,
		Name:        name,
		ContentType: contentType,
		Size:        info.Size,
		ModTime:     info.ModTime,
	}, nil
}

// SweepOrphans удаляет объекты старше olderThan, на которые не ссылается ни один URL из referenced.
func (m *ImagesInfrastructure) SweepOrphans(ctx context.Context, referenced []string, olderThan time.Duration) (int, error) {
	const op = "ImagesInfrastructure.SweepOrphans"

	keep := make(map[string]struct{}, len(referenced))
	for _, url := range referenced {
		if key, ok := m.KeyFromURL(url); ok {
			keep[key] = struct{}{}
		}
	}

	objects, err := m.imageRepo.List(ctx)
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	var (
		removed int
		errs    []error
	)
	threshold := time.Now().Add(-olderThan)
	for _, obj := range objects {
		if _, ok := keep[obj.Key]; ok {
			continue
		}
		// свежие файлы могут принадлежать транзакции, которая ещё не закоммичена
		if obj.ModTime.After(threshold) {
			continue
		}

		if err := m.imageRepo.Delete(ctx, obj.Key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", obj.Key, err))
			continue
		}
		removed++
	}

	if len(errs) > 0 {
		return removed, e.Wrap(op, errors.Join(errs...))
	}

	return removed, nil
}

// CleanupImages запускает фоновую очистку указанных изображений
func (m *ImagesInfrastructure) CleanupImages(urls []string) {
	keys := make([]string, 0, len(urls))
	for _, url := range urls {
		if key, ok := m.KeyFromURL(url); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}

	m.wg.Add(1)
	go m.cleanupKeys(keys)
}

// cleanupKeys удаляет объекты с экспоненциальной задержкой и jitter.
func (m *ImagesInfrastructure) cleanupKeys(keys []string) {
	defer m.wg.Done()
	const op = "ImagesInfrastructure.cleanupKeys"
	m.logger.Infof("%s: cleaning up %d image(s)", op, len(keys))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, m.cfg.CleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.imageRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if ctx.Err() != nil {
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%v", op, key)
				break
			}

			delay := jitter.ExponentialBackoff(cleanupBaseBackoff, cleanupMaxBackoff, attempt, jitter.DefaultJitter)
			if !jitter.Sleep(ctx.Done(), delay) {
				m.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *ImagesInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("image cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}

func (m *ImagesInfrastructure) Ping(ctx context.Context) error {
	return m.imageRepo.Ping(ctx)
}

// URL строит публичный путь к изображению.
func (m *ImagesInfrastructure) URL(key string) string {
	return m.cfg.PublicPrefix + "/" + key
}

// KeyFromURL извлекает имя объекта из публичного пути.
func (m *ImagesInfrastructure) KeyFromURL(url string) (string, bool) {
	key := path.Base(strings.TrimPrefix(url, m.cfg.PublicPrefix+"/"))
	if !m.isValidKey(key) {
		return "", false
	}

	return key, true
}

// isValidKey отсекает пути с разделителями и скрытые файлы.
func (m *ImagesInfrastructure) isValidKey(key string) bool {
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return false
	}
	if strings.ContainsAny(key, `/\`) {
		return false
	}

	return true
}
