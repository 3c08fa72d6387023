package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kendall-kelly/bakery-orders-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImageService(t *testing.T) {
	dir := t.TempDir()
	svc := NewLocalImageService(dir)
	ctx := context.Background()

	key, err := svc.UploadImage(ctx, newTestUpload(t, "upi.jpeg", []byte("jpeg bytes")))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), content)

	url, err := svc.GetImageURL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/uploads/"+key, url)

	require.NoError(t, svc.DeleteImage(ctx, key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, svc.DeleteImage(ctx, key), "deleting a missing image is not an error")
}

func TestLocalImageService_RejectsInvalidFiles(t *testing.T) {
	svc := NewLocalImageService(t.TempDir())

	_, err := svc.UploadImage(context.Background(), newTestUpload(t, "notes.txt", []byte("hi")))

	var uploadErr *utils.FileUploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "INVALID_FILE_FORMAT", uploadErr.Code)
}

func TestS3ImageService_UsesEvidencePrefix(t *testing.T) {
	s3 := NewMockS3Service()
	svc := InitImageService(s3)
	ctx := context.Background()

	key, err := svc.UploadImage(ctx, newTestUpload(t, "proof.png", []byte("png")))
	require.NoError(t, err)
	assert.Equal(t, EvidencePrefix+"0001-proof.png", key)
	assert.True(t, s3.FileExists(key))

	url, err := svc.GetImageURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	empty, err := svc.GetImageURL(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, svc.DeleteImage(ctx, key))
	assert.False(t, s3.FileExists(key))
	assert.Same(t, svc, GetImageService())
}
