package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	key := objectKey(EvidencePrefix, "../../UPI Receipt.PNG", now)

	assert.True(t, strings.HasPrefix(key, EvidencePrefix+"2026/03/09/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotContains(t, key, "Receipt")
	assert.NotEqual(t, key, objectKey(EvidencePrefix, "../../UPI Receipt.PNG", now))
}

func TestS3Service_PresignsWithoutNetwork(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
	svc := NewS3Service(client, "bakery-evidence")

	url, err := svc.GetPresignedURL(context.Background(), EvidencePrefix+"2026/03/09/abc.png")
	require.NoError(t, err)
	assert.Contains(t, url, "bakery-evidence")
	assert.Contains(t, url, "X-Amz-Expires=3600")

	empty, err := svc.GetPresignedURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.NoError(t, svc.DeleteFile(context.Background(), ""))
}
