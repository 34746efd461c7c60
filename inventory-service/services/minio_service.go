package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"bloodlink-backend/shared/config"
)

// MinIOService stores proof-of-delivery scans (signed delivery notes) for
// custody records. The ledger row keeps only the object key; the bytes live
// in MinIO.
type MinIOService struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOService connects to MinIO and ensures the attachment bucket exists
func NewMinIOService() (*MinIOService, error) {
	cfg := config.GetConfig()

	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %v", err)
	}

	endpoint := parsedURL.Host
	useSSL := cfg.MinIOUseSSL

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", endpoint, useSSL)

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &MinIOService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
	}

	if err := service.initializeBucket(); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *MinIOService) initializeBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	}

	return nil
}

// UploadDeliveryNote stores one proof-of-delivery file for a custody record
// and returns the object key to persist on the record.
func (s *MinIOService) UploadDeliveryNote(ctx context.Context, custodyID uuid.UUID, filename string, size int64, reader io.Reader, contentType string) (string, error) {
	objectKey := fmt.Sprintf("custody/%s/%d%s", custodyID, time.Now().UTC().Unix(), path.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload delivery note: %v", err)
	}

	return objectKey, nil
}

// PresignedURL returns a time-limited download link for an attachment.
func (s *MinIOService) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign attachment: %v", err)
	}
	return u.String(), nil
}
