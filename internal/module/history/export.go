package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const exportURLExpiry = 15 * time.Minute

// ExportStore uploads history snapshots to object storage and hands back
// a time-limited download URL.
type ExportStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, time.Time, error)
}

// S3Config holds object storage configuration for exports.
// Works against S3 or any S3-compatible endpoint (R2, MinIO).
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3ExportStore implements ExportStore over the AWS S3 API.
type S3ExportStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewS3ExportStore creates an export store for the given bucket.
func NewS3ExportStore(cfg *S3Config) (*S3ExportStore, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, errors.New("incomplete storage configuration")
	}

	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ExportStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
	}, nil
}

// Upload stores the export blob and returns a presigned download URL.
func (s *S3ExportStore) Upload(ctx context.Context, key string, data []byte) (string, time.Time, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("upload export: %w", err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = exportURLExpiry
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign export: %w", err)
	}

	return req.URL, time.Now().Add(exportURLExpiry), nil
}

// exportKey builds the object key for a tenant's export.
func exportKey(tenantID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("exports/%s/history-%s.json", tenantID, now.UTC().Format("20060102-150405"))
}

// exportPayload is the serialized shape of an export file.
type exportPayload struct {
	TenantID   string    `json:"tenant_id"`
	ExportedAt time.Time `json:"exported_at"`
	Records    []*Record `json:"records"`
}

func marshalExport(tenantID uuid.UUID, now time.Time, records []*Record) ([]byte, error) {
	return json.MarshalIndent(exportPayload{
		TenantID:   tenantID.String(),
		ExportedAt: now.UTC(),
		Records:    records,
	}, "", "  ")
}
