package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxPredictImageBytes = 10 << 20
	maxReportImageBytes  = 5 << 20
)

var (
	errNoFile       = errors.New("no file uploaded")
	errNotImage     = errors.New("only images allowed")
	errFileTooLarge = errors.New("uploaded file too large")
)

var allowedImageExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
}

// imageUpload is a validated image read out of a multipart form.
type imageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// parseImageUpload extracts and validates a single image from the named
// multipart field. Extension and declared MIME type must both be in the
// jpeg/jpg/png allow-list, and the size cap is enforced before any
// bytes reach storage.
func parseImageUpload(form *multipart.Form, field string, maxBytes int64) (imageUpload, error) {
	if form == nil {
		return imageUpload{}, errNoFile
	}

	files := form.File[field]
	if len(files) == 0 {
		return imageUpload{}, errNoFile
	}
	if len(files) > 1 {
		return imageUpload{}, errors.New("only one file is allowed")
	}

	fileHeader := files[0]
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return imageUpload{}, errNotImage
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageMime(contentType) {
		return imageUpload{}, errNotImage
	}

	if fileHeader.Size > maxBytes {
		return imageUpload{}, errFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return imageUpload{}, fmt.Errorf("failed to read upload: %w", err)
	}

	data, err := readFileLimited(file, maxBytes)
	_ = file.Close()
	if err != nil {
		return imageUpload{}, err
	}

	return imageUpload{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func allowedImageMime(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "jpeg") ||
		strings.Contains(contentType, "jpg") ||
		strings.Contains(contentType, "png")
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

// storageKey generates a collision-resistant object name so concurrent
// uploads can never overwrite each other.
func storageKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), ext)
}
