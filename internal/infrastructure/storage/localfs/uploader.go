package localfs

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// PhotoUploader stores criterion photos on disk and serves them under
// <publicBaseURL>/photos/<key>.
type PhotoUploader struct {
	storage       *Storage
	publicBaseURL string
}

func NewPhotoUploader(storage *Storage, publicBaseURL string) *PhotoUploader {
	return &PhotoUploader{
		storage:       storage,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload writes the image under a fresh key, so every call returns a new URL.
func (u *PhotoUploader) Upload(ctx context.Context, photo ports.PhotoUpload) (string, error) {
	key := uuid.NewString() + photoExtension(photo.Filename, photo.ContentType)
	if err := u.storage.Save(ctx, key, photo.Body); err != nil {
		return "", domain.WrapError(domain.ErrUpload, "store photo", err)
	}
	return u.publicBaseURL + "/photos/" + key, nil
}

func photoExtension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}
