// Package archive copies generated export artifacts to S3-compatible
// object storage so downloads survive outside the client's machine.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gantry/api/internal/export"
)

// Config holds the object-storage connection settings. An empty endpoint
// disables archiving.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Service uploads export artifacts. Nil-safe: a nil Service ignores every
// call, so callers never branch on whether archiving is configured.
type Service struct {
	client *minio.Client
	bucket string
}

// New connects to object storage and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Service{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads one artifact in the background. Failures are logged, never
// surfaced: archiving must not block or fail the download itself.
func (s *Service) Store(projectID string, result *export.Result) {
	if s == nil || result == nil {
		return
	}
	data := make([]byte, len(result.Data))
	copy(data, result.Data)
	key := fmt.Sprintf("%s/%s", projectID, result.Filename)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: result.MimeType})
		if err != nil {
			log.Printf("archive: upload %s: %v", key, err)
			return
		}
		log.Printf("archive: stored %s (%d bytes)", key, len(data))
	}()
}
