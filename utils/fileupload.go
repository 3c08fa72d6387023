package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kendall-kelly/bakery-orders-api/logger"
)

// MaxFileSize caps payment evidence uploads at 10MB
const MaxFileSize = 10 * 1024 * 1024

// allowedImageTypes maps accepted extensions to their content types
var allowedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadDir is where the local image service keeps evidence. Overridden from config and in tests.
var UploadDir = "./uploads"

// FileUploadError is a rejected upload; Code is reported to clients as the error reason
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile accepts PNG and JPEG files up to MaxFileSize
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	if _, ok := allowedImageTypes[strings.ToLower(filepath.Ext(fileHeader.Filename))]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG and JPEG files are allowed",
		}
	}

	return nil
}

// ImageContentType returns the content type for an accepted image file name
func ImageContentType(filename string) string {
	if ct, ok := allowedImageTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// StoredFileName names a saved upload by a random id plus the lowercased original extension
func StoredFileName(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

// SaveUploadedFile copies an upload into uploadDir and returns the new file name.
// The file only appears under its final name once fully written.
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir string) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.Component("uploads").Warn().Err(closeErr).Msg("failed to close uploaded file")
		}
	}()

	tmp, err := os.CreateTemp(uploadDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close destination file: %w", err)
	}

	filename := StoredFileName(fileHeader.Filename)
	if err := os.Rename(tmp.Name(), filepath.Join(uploadDir, filename)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return filename, nil
}

// GetImageURL returns the API path serving a locally stored image
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return "/api/v1/uploads/" + filename
}
