// services/store.go
package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// StoreService persists blobs content-addressed in S3: the object key is the
// SHA-256 digest of the payload, and the digest doubles as the content
// identifier handed back to the chain. Re-uploading identical content is a
// no-op by construction.
type StoreService struct {
	client     *s3.S3
	bucketName string
}

func NewStoreService(region, bucketName, accessKey, secretKey string) *StoreService {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
		Credentials: credentials.NewStaticCredentials(
			accessKey,
			secretKey,
			"",
		),
	}))

	return &StoreService{
		client:     s3.New(sess),
		bucketName: bucketName,
	}
}

const maxBlobSize = 10 * 1024 * 1024 // 10MB

func (s *StoreService) Put(data []byte, contentType string) (string, error) {
	if !isValidImageType(contentType) {
		return "", fmt.Errorf("invalid file type: %s", contentType)
	}
	if len(data) > maxBlobSize {
		return "", fmt.Errorf("file size too large: %d bytes (max: %d bytes)", len(data), maxBlobSize)
	}

	digest := sha256.Sum256(data)
	cid := hex.EncodeToString(digest[:])

	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:       aws.String(s.bucketName),
		Key:          aws.String("blobs/" + cid),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	return cid, nil
}

func (s *StoreService) Delete(cid string) error {
	if cid == "" {
		return nil
	}

	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String("blobs/" + cid),
	})
	return err
}

func isValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
	}

	for _, validType := range validTypes {
		if strings.EqualFold(contentType, validType) {
			return true
		}
	}
	return false
}
