package utils

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageStorage stores user photos and generated avatars by object key
type ImageStorage interface {
	Upload(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectKey string) (string, error)
}

// S3Storage is the ImageStorage backed by one S3 bucket
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// NewS3Storage loads the default AWS credential chain for region
func NewS3Storage(ctx context.Context, region, bucket string) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_BUCKET_NAME is not set")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	client := s3.NewFromConfig(cfg)
	Log.Infow("S3 client initialized", "bucket", bucket, "region", region)
	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		expiry:    time.Hour,
	}, nil
}

// Upload puts file under objectKey and returns the key
func (s *S3Storage) Upload(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return objectKey, nil
}

// PresignedURL returns a time-limited GET URL for objectKey
func (s *S3Storage) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}
	return request.URL, nil
}
