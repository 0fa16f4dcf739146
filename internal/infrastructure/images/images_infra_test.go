package images

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/repository/fs"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newInfra(t *testing.T) (*ImagesInfrastructure, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := fs.NewImageRepo(dir)
	require.NoError(t, err)

	infra := NewImagesInfrastructure(repo, &cfg.ImagesCfg{
		Storage:           cfg.ImageStorageFS,
		UploadDir:         dir,
		PublicPrefix:      "/uploads",
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "webp"},
		MaxSize:           1024,
		CleanupTimeout:    time.Second,
		OrphanAge:         time.Hour,
	}, logger.NewSlogLogger(logger.WithWriter(io.Discard)), context.Background())

	return infra, dir
}

func TestStoreOpenRemove(t *testing.T) {
	infra, dir := newInfra(t)
	ctx := context.Background()

	url, err := infra.StoreImage(ctx, usecase.NewProductImage(pngHeader, "Foto.PNG"))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^/uploads/[0-9a-f]{32}\.png$`), url)

	key, ok := infra.KeyFromURL(url)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, key))

	obj, err := infra.OpenImage(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(len(pngHeader)), obj.Size)

	require.NoError(t, infra.RemoveImage(ctx, url))
	assert.NoFileExists(t, filepath.Join(dir, key))

	// повторное удаление не ошибка
	require.NoError(t, infra.RemoveImage(ctx, url))
}

func TestValidate(t *testing.T) {
	infra, _ := newInfra(t)

	assert.NoError(t, infra.Validate(usecase.NewProductImage(pngHeader, "a.jpeg")))
	assert.ErrorIs(t, infra.Validate(usecase.NewProductImage(pngHeader, "a.pdf")), e.ErrUnsupportedImage)
	assert.ErrorIs(t, infra.Validate(usecase.NewProductImage(pngHeader, "noext")), e.ErrUnsupportedImage)
	assert.ErrorIs(t, infra.Validate(usecase.NewProductImage(make([]byte, 2048), "big.png")), e.ErrFileTooLarge)
}

func TestOpenImageRejectsUnsafeNames(t *testing.T) {
	infra, _ := newInfra(t)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../etc/passwd", ".hidden.png", `a\b.png`, "missing.png"} {
		_, err := infra.OpenImage(ctx, name)
		assert.ErrorIs(t, err, e.ErrImageNotFound, name)
	}
}

func TestKeyFromURL(t *testing.T) {
	infra, _ := newInfra(t)

	key, ok := infra.KeyFromURL("/uploads/abc.png")
	assert.True(t, ok)
	assert.Equal(t, "abc.png", key)

	_, ok = infra.KeyFromURL("/uploads/")
	assert.False(t, ok)
	_, ok = infra.KeyFromURL("/uploads/.upload-123")
	assert.False(t, ok)
}

func TestSweepOrphans(t *testing.T) {
	infra, dir := newInfra(t)
	ctx := context.Background()

	kept, err := infra.StoreImage(ctx, usecase.NewProductImage(pngHeader, "kept.png"))
	require.NoError(t, err)
	orphan, err := infra.StoreImage(ctx, usecase.NewProductImage(pngHeader, "orphan.png"))
	require.NoError(t, err)
	fresh, err := infra.StoreImage(ctx, usecase.NewProductImage(pngHeader, "fresh.png"))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, url := range []string{kept, orphan} {
		key, _ := infra.KeyFromURL(url)
		require.NoError(t, os.Chtimes(filepath.Join(dir, key), old, old))
	}

	removed, err := infra.SweepOrphans(ctx, []string{kept}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	for url, exists := range map[string]bool{kept: true, orphan: false, fresh: true} {
		key, _ := infra.KeyFromURL(url)
		if exists {
			assert.FileExists(t, filepath.Join(dir, key))
		} else {
			assert.NoFileExists(t, filepath.Join(dir, key))
		}
	}
}

func TestCleanupImagesRunsInBackground(t *testing.T) {
	infra, dir := newInfra(t)
	ctx := context.Background()

	url, err := infra.StoreImage(ctx, usecase.NewProductImage(pngHeader, "tmp.gif"))
	require.NoError(t, err)
	key, _ := infra.KeyFromURL(url)

	infra.CleanupImages([]string{url, "/somewhere/../.."})

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, infra.WaitForCleanup(waitCtx))
	assert.NoFileExists(t, filepath.Join(dir, key))
}

func TestURL(t *testing.T) {
	infra, _ := newInfra(t)
	assert.True(t, strings.HasPrefix(infra.URL("x.png"), "/uploads/"))
	assert.NoError(t, infra.Ping(context.Background()))
}
