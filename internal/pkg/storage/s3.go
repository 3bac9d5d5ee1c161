package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

// S3Config holds S3 storage configuration
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN or public bucket URL
}

// LoadS3Config loads S3 configuration from environment variables
func LoadS3Config() (*S3Config, error) {
	cfg := &S3Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_URL", ""),
	}

	if cfg.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required for STORAGE_DRIVER=s3")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required for STORAGE_DRIVER=s3")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required for STORAGE_DRIVER=s3")
	}
	return cfg, nil
}

// S3Uploader stores objects in one bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    *S3Config
}

func NewS3Uploader(ctx context.Context, cfg *S3Config) (*S3Uploader, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services (MinIO, B2, R2) want path-style URLs
			o.UsePathStyle = true
		}
	})

	log.Infof("[Storage] S3 uploader ready for bucket: %s", cfg.BucketName)
	return &S3Uploader{client: client, cfg: cfg}, nil
}

func (u *S3Uploader) Name() string { return "s3" }

// Ping checks that the bucket is reachable.
func (u *S3Uploader) Ping(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.cfg.BucketName)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", u.cfg.BucketName, err)
	}
	return nil
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) (*Uploaded, error) {
	if contentType == "" {
		contentType = contentTypeFor(key)
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload s3://%s/%s: %w", u.cfg.BucketName, key, err)
	}
	log.Infof("[Storage] uploaded s3://%s/%s", u.cfg.BucketName, key)
	return &Uploaded{Key: key, URL: u.PublicURL(key)}, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", u.cfg.BucketName, key, err)
	}
	return nil
}

// PublicURL prefers S3_PUBLIC_URL, then the path-style endpoint URL, then
// the AWS virtual-hosted URL.
func (u *S3Uploader) PublicURL(key string) string {
	escaped := escapeKey(key)
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + escaped
	}
	if u.cfg.EndpointURL != "" {
		return strings.TrimRight(u.cfg.EndpointURL, "/") + "/" + u.cfg.BucketName + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.BucketName, u.cfg.Region, escaped)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
