package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"localhire/internal/domain"
	"localhire/internal/notify"
)

func (s *Server) maxUpload() int64 {
	if s.cfg.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return s.cfg.MaxUploadMB << 20
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload()+1<<20)
	if err := r.ParseMultipartForm(s.maxUpload()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Validation(fmt.Sprintf("upload exceeds %d MB", s.maxUpload()>>20))
		}
		return domain.Validation("invalid multipart form")
	}
	return nil
}

// formFile returns the named part, or nil when it was not sent. The caller
// closes the returned closer.
func formFile(r *http.Request, field string) (*domain.File, io.Closer, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, domain.Validation(fmt.Sprintf("invalid %s upload", field))
	}
	return &domain.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, f, nil
}

func formAttachment(r *http.Request, field string) (*notify.Attachment, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Validation(fmt.Sprintf("invalid %s upload", field))
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &notify.Attachment{Name: header.Filename, Data: data}, nil
}
