package infrastructure

import (
	"net/http"
	"strings"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
)

// DetectImageContentType определяет MIME-тип по содержимому файла.
// Если сигнатура не распознана как изображение, тип берётся по расширению.
func DetectImageContentType(data []byte, ext string) string {
	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}

	return domain.ContentTypeByExt(ext)
}
