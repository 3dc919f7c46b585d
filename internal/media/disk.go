package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"localhire/internal/domain"
	"localhire/internal/metrics"
)

// DiskUploader writes uploads under a local directory. Used when no bucket is configured.
type DiskUploader struct {
	root    string
	baseURL string
	maxSize int64
}

func NewDiskUploader(root, baseURL string, maxSize int64) *DiskUploader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &DiskUploader{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}
}

func (u *DiskUploader) Root() string {
	return u.root
}

func (u *DiskUploader) Upload(ctx context.Context, folder string, f domain.File) (string, error) {
	ext, err := Validate(f, u.maxSize)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(folder, ext, time.Now())
	path := filepath.Join(u.root, filepath.FromSlash(name))
	if err := u.write(path, f.Body); err != nil {
		metrics.IncUploadFailure()
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	return u.baseURL + "/" + name, nil
}

func (u *DiskUploader) write(path string, body io.ReadSeeker) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(dst, body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}
