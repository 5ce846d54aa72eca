package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize - предельный размер загружаемого изображения (5 MB).
const MaxImageSize = 5 << 20

var ErrUnsupportedContentType = errors.New("unsupported image content type")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string

	// KeyFromURL возвращает ключ объекта по его публичному URL или "", если URL не наш.
	KeyFromURL(publicURL string) string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension возвращает расширение файла для поддерживаемого MIME-типа изображения.
func ImageExtension(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	// Убираем параметры типа "; charset=..."
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return ext, nil
}

// ObjectKey строит уникальный ключ объекта вида "<folder>/<ownerID>/<uuid><ext>".
func ObjectKey(folder string, ownerID int, ext string) string {
	return fmt.Sprintf("%s/%d/%s%s", strings.Trim(folder, "/"), ownerID, uuid.NewString(), ext)
}

// KeyFromURL восстанавливает ключ объекта из публичного URL. Пустая строка, если URL чужой.
func KeyFromURL(publicBaseURL, objectURL string) string {
	base := strings.TrimRight(publicBaseURL, "/") + "/"
	if publicBaseURL == "" || !strings.HasPrefix(objectURL, base) {
		return ""
	}
	return strings.TrimPrefix(objectURL, base)
}
