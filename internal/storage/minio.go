package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
)

// MinIO archives the raw CV text each candidate profile was extracted
// from, keyed by source id. The archive is what re-extraction and audits
// read; the relational store only keeps the object path.
type MinIO struct {
	client        *minio.Client
	cfg           *config.MinIOConfig
	rawTextBucket string
}

func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config must not be nil")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	bucket := cfg.RawTextBucket
	if bucket == "" {
		bucket = "cv-raw-text"
	}

	m := &MinIO{client: client, cfg: cfg, rawTextBucket: bucket}
	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensuring bucket %s: %w", bucket, err)
	}
	if cfg.RawTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), bucket, "expire-raw-text", cfg.RawTextExpireDays); err != nil {
			logger.Logger.Warn().Err(err).Str("bucket", bucket).Msg("could not set lifecycle rule")
		}
	}

	logger.Logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("minio ready")
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucket, location string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucket, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:         ruleID,
			Status:     "Enabled",
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(expiryDays)},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucket, cfg)
}

func rawTextObjectName(sourceID string) string {
	return fmt.Sprintf("raw/%s.txt", sourceID)
}

// UploadRawText stores the raw CV text for a source and returns the
// object path the relational row should carry.
func (m *MinIO) UploadRawText(ctx context.Context, sourceID, text string) (string, error) {
	objectName := rawTextObjectName(sourceID)
	data := []byte(text)
	_, err := m.client.PutObject(ctx, m.rawTextBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("uploading raw text for %s: %w", sourceID, err)
	}
	return fmt.Sprintf("%s/%s", m.rawTextBucket, objectName), nil
}

// GetRawText fetches the archived text for one source id.
func (m *MinIO) GetRawText(ctx context.Context, sourceID string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.rawTextBucket, rawTextObjectName(sourceID), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("opening raw text for %s: %w", sourceID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("reading raw text for %s: %w", sourceID, err)
	}
	return string(data), nil
}

// DeleteRawText removes an archived text, used when ingest is rolled back.
func (m *MinIO) DeleteRawText(ctx context.Context, sourceID string) error {
	return m.client.RemoveObject(ctx, m.rawTextBucket, rawTextObjectName(sourceID), minio.RemoveObjectOptions{})
}
