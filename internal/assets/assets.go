// Package assets stores player uploads in an S3-compatible bucket and
// tracks them in the assets table.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/playperu/hunts/internal/config"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

// MaxSize bounds both uploads and downloads.
const MaxSize = 10 << 20

// NewS3Client builds a client for cfg. A custom endpoint switches to
// path-style addressing, which R2 and MinIO expect.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading s3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Service struct {
	store  *storage.Store
	client *s3.Client
	bucket string
	now    func() time.Time
}

// NewService returns an asset service. A nil client leaves lookups working
// but makes uploads and downloads report unavailable.
func NewService(store *storage.Store, client *s3.Client, bucket string) *Service {
	return &Service{store: store, client: client, bucket: bucket, now: time.Now}
}

func (s *Service) FindByID(ctx context.Context, id string) (hunt.Asset, error) {
	return s.store.Queries().Asset(ctx, id)
}

// Open downloads the asset's bytes.
func (s *Service) Open(ctx context.Context, a hunt.Asset) ([]byte, error) {
	if s.client == nil {
		return nil, hunt.Unavailable("asset storage is not configured", nil)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(a.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", a.ObjectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.ObjectKey, err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", a.ID, MaxSize)
	}
	return data, nil
}

// Upload stores data under a fresh id and records it.
func (s *Service) Upload(ctx context.Context, mimeType string, data []byte) (hunt.Asset, error) {
	if s.client == nil {
		return hunt.Asset{}, hunt.Unavailable("asset storage is not configured", nil)
	}
	if len(data) == 0 {
		return hunt.Asset{}, hunt.Invalid("upload is empty")
	}
	if len(data) > MaxSize {
		return hunt.Asset{}, hunt.Invalid(fmt.Sprintf("upload exceeds %d bytes", MaxSize))
	}
	if !allowedMIME(mimeType) {
		return hunt.Asset{}, hunt.Invalid(fmt.Sprintf("unsupported content type %q", mimeType))
	}

	id := uuid.NewString()
	a := hunt.Asset{
		ID:        id,
		ObjectKey: "uploads/" + id,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		CreatedAt: s.now(),
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(a.ObjectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return hunt.Asset{}, fmt.Errorf("uploading %s: %w", a.ObjectKey, err)
	}

	if err := s.store.Queries().InsertAsset(ctx, a); err != nil {
		return hunt.Asset{}, err
	}
	return a, nil
}

// Check reports whether the bucket is reachable.
func (s *Service) Check(ctx context.Context) error {
	if s.client == nil {
		return errors.New("not configured")
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func allowedMIME(m string) bool {
	for _, prefix := range []string{"image/", "audio/", "video/"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
