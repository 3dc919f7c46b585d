// Package media stores uploaded images and returns their public URLs.
package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"localhire/internal/domain"

	"github.com/google/uuid"
)

const DefaultMaxSize = 10 << 20

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
}

// Validate checks presence, size and extension and returns the lower-cased extension.
func Validate(f domain.File, maxSize int64) (string, error) {
	if f.Body == nil || f.Size == 0 {
		return "", domain.ErrProofRequired
	}
	if maxSize > 0 && f.Size > maxSize {
		return "", fmt.Errorf("%w: size exceeds %d MB", domain.ErrInvalidFile, maxSize/(1<<20))
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: type %q", domain.ErrInvalidFile, ext)
	}
	return ext, nil
}

// objectName builds folder/20240305-<uuid>.ext.
func objectName(folder, ext string, now time.Time) string {
	name := fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.NewString(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func contentType(f domain.File, ext string) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
