// upload.go — разбор multipart-форм с файлами (NID, изображения, медиа).
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/krishibazar/admin-console/internal/backend"
)

// maxUploadSize — предел тела формы с файлами.
const maxUploadSize = 32 << 20

// parseUpload разбирает форму. Форма без файлов (urlencoded) тоже допустима.
func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	err := r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formFiles читает файлы поля name. Пустые поля выбора файла пропускаются.
func formFiles(r *http.Request, name string) ([]backend.FilePart, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[name]
	parts := make([]backend.FilePart, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("файл %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("файл %s: %w", fh.Filename, err)
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		parts = append(parts, backend.FilePart{
			Field:       name,
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return parts, nil
}

// collectFiles читает файлы нескольких полей в одном порядке.
func collectFiles(r *http.Request, names ...string) ([]backend.FilePart, error) {
	var all []backend.FilePart
	for _, name := range names {
		parts, err := formFiles(r, name)
		if err != nil {
			return nil, err
		}
		all = append(all, parts...)
	}
	return all, nil
}
