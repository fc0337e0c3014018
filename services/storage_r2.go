package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"doc_builder_app_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// R2Storage keeps objects in a Cloudflare R2 bucket through the S3 API
type R2Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewR2Storage creates an R2 client for the configured account and bucket
func NewR2Storage(ctx context.Context, cfg *config.Config) (*R2Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID))
		o.UsePathStyle = true
	})
	return &R2Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
	}, nil
}

// Name implements StorageProvider
func (r *R2Storage) Name() string {
	return "r2:" + r.bucket
}

// Ping checks that the bucket exists and the credentials can reach it
func (r *R2Storage) Ping(ctx context.Context) error {
	if _, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)}); err != nil {
		return fmt.Errorf("failed to reach R2 bucket %s: %w", r.bucket, err)
	}
	return nil
}

// Put implements StorageProvider
func (r *R2Storage) Put(ctx context.Context, key string, body io.Reader, meta ObjectMeta) (*StoredObject, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeFor(key)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put %s: %w", key, err)
	}
	return &StoredObject{Key: key, ObjectMeta: meta}, nil
}

// Open implements StorageProvider
func (r *R2Storage) Open(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ObjectMeta{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectMeta{}, fmt.Errorf("failed to get %s: %w", key, err)
	}

	meta := ObjectMeta{ContentType: aws.ToString(out.ContentType), Size: aws.ToInt64(out.ContentLength)}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeFor(key)
	}
	return out.Body, meta, nil
}

// Delete implements StorageProvider. Deleting a missing key succeeds.
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SignURL implements URLSigner
func (r *R2Storage) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return req.URL, nil
}
