package domain

import (
	"path"
	"strings"
	"time"
)

// Image описывает файл изображения в хранилище
type Image struct {
	Key         string // имя объекта: <uuid>.<ext>
	Bytes       []byte
	Size        int64
	ContentType string
	ModTime     time.Time
}

func NewImage(key string, data []byte, contentType string) *Image {
	return &Image{
		Key:         key,
		Bytes:       data,
		Size:        int64(len(data)),
		ContentType: contentType,
	}
}

// ImageExt возвращает расширение имени файла без точки в нижнем регистре.
func ImageExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// ContentTypeByExt сопоставляет расширение изображения MIME-типу.
func ContentTypeByExt(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
