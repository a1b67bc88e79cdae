// Package content stores video and image blobs in an S3-compatible
// object store and addresses them by content id. MinIO is supported for
// local development via a custom endpoint.
package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/str3am/backend-go/internal/config"
)

// Store persists content blobs and resolves their public URLs.
type Store interface {
	// Put uploads a blob and returns its content id.
	Put(reader io.Reader, contentType string) (string, error)

	// URL resolves a content id to its public URL.
	URL(cid string) string

	// Delete removes a blob by content id.
	Delete(cid string) error
}

type s3Store struct {
	s3Client *s3.S3
	bucket   string
}

// NewStore creates an S3-backed content store.
func NewStore(cfg *config.ContentConfig) (Store, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}

	// Support MinIO for local development
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		if cfg.DisableSSL {
			awsConfig.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	store := &s3Store{
		s3Client: s3.New(sess),
		bucket:   cfg.Bucket,
	}

	// Ensure bucket exists (for MinIO)
	_, err = store.s3Client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		_, _ = store.s3Client.CreateBucket(&s3.CreateBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
	}

	return store, nil
}

// Put hashes the blob to derive a stable content id, then uploads it
// under that key. Re-uploading identical bytes yields the same id.
func (s *s3Store) Put(reader io.Reader, contentType string) (string, error) {
	buf := bytes.NewBuffer(nil)
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(buf, hasher), reader); err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}

	cid := hex.EncodeToString(hasher.Sum(nil))

	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(cid),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}

	return cid, nil
}

func (s *s3Store) URL(cid string) string {
	endpoint := aws.StringValue(s.s3Client.Config.Endpoint)
	if endpoint != "" && !strings.Contains(endpoint, "amazonaws.com") {
		// MinIO URL format
		protocol := "http"
		if s.s3Client.Config.DisableSSL != nil && !*s.s3Client.Config.DisableSSL {
			protocol = "https"
		}
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		return fmt.Sprintf("%s://%s/%s/%s", protocol, endpoint, s.bucket, cid)
	}

	region := aws.StringValue(s.s3Client.Config.Region)
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, cid)
}

func (s *s3Store) Delete(cid string) error {
	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cid),
	})
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}
