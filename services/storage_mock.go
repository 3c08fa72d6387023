package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/kendall-kelly/bakery-orders-api/utils"
)

// ErrMockDeleteFailed is returned by MockImageService.DeleteImage when FailDeletes is set
var ErrMockDeleteFailed = errors.New("mock storage: delete failed")

// memoryStore keeps uploaded blobs in memory under sequential keys
type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	seq   int
}

func (s *memoryStore) put(prefix string, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.seq++
	key := fmt.Sprintf("%s%04d-%s", prefix, s.seq, fileHeader.Filename)
	s.blobs[key] = content
	return key, nil
}

func (s *memoryStore) has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok
}

func (s *memoryStore) remove(key string) {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
}

func (s *memoryStore) snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.blobs))
	for k, v := range s.blobs {
		out[k] = v
	}
	return out
}

// MockImageService is an in-memory ImageService for tests
type MockImageService struct {
	store memoryStore

	// FailDeletes makes DeleteImage fail while leaving the image in place
	FailDeletes bool
}

// NewMockImageService creates an empty mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{}
}

// UploadImage validates the file like the real services and keeps its bytes
func (m *MockImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	return m.store.put(EvidencePrefix, fileHeader)
}

// GetImageURL returns a fake presigned URL for a stored image
func (m *MockImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	if !m.store.has(imageKey) {
		return "", fmt.Errorf("image not found in mock storage: %s", imageKey)
	}
	return "https://evidence.test/" + imageKey + "?signature=mock", nil
}

// DeleteImage forgets a stored image
func (m *MockImageService) DeleteImage(_ context.Context, imageKey string) error {
	if m.FailDeletes {
		return ErrMockDeleteFailed
	}
	m.store.remove(imageKey)
	return nil
}

// GetUploadedImages returns a copy of every stored image by key
func (m *MockImageService) GetUploadedImages() map[string][]byte {
	return m.store.snapshot()
}

// ImageExists reports whether imageKey is stored
func (m *MockImageService) ImageExists(imageKey string) bool {
	return m.store.has(imageKey)
}

// MockS3Service is an in-memory S3Interface for tests
type MockS3Service struct {
	store memoryStore
}

// NewMockS3Service creates a mock S3 service and installs it as the global instance
func NewMockS3Service() *MockS3Service {
	m := &MockS3Service{}
	SetS3Service(m)
	return m
}

// UploadFile stores the file under prefix
func (m *MockS3Service) UploadFile(_ context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error) {
	return m.store.put(prefix, fileHeader)
}

// GetPresignedURL returns a bucket URL for a stored key
func (m *MockS3Service) GetPresignedURL(_ context.Context, s3Key string) (string, error) {
	if !m.store.has(s3Key) {
		return "", fmt.Errorf("file not found in mock S3: %s", s3Key)
	}
	return "https://test-bucket.s3.us-east-1.amazonaws.com/" + s3Key + "?X-Amz-Signature=mock", nil
}

// DeleteFile removes a stored key
func (m *MockS3Service) DeleteFile(_ context.Context, s3Key string) error {
	m.store.remove(s3Key)
	return nil
}

// FileExists reports whether s3Key is stored
func (m *MockS3Service) FileExists(s3Key string) bool {
	return m.store.has(s3Key)
}
