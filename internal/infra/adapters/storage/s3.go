package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*S3Storage)(nil)

// presignTTL bounds how long a client may sit on an issued upload slot.
const presignTTL = 10 * time.Minute

// S3Storage issues pre-signed PUT URLs for proof-of-payment images. When the
// bucket is not configured it degrades to an explicit local-upload target and
// logs the degradation, so nothing fails silently in dev setups.
type S3Storage struct {
	presign    *s3.PresignClient
	bucket     string
	publicBase string
	localBase  string
	log        *zerolog.Logger
}

func NewS3Storage(ctx context.Context, cfg *config.StorageConfig, logger *zerolog.Logger) (*S3Storage, error) {
	compLog := logger.With().Str("component", "S3Storage").Logger()
	st := &S3Storage{
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		localBase:  strings.TrimRight(cfg.LocalBaseURL, "/"),
		log:        &compLog,
	}
	if cfg.Bucket == "" {
		compLog.Warn().Msg("object storage not configured, proof uploads use local fallback")
		return st, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})
	st.presign = s3.NewPresignClient(client)
	return st, nil
}

func (s *S3Storage) Configured() bool { return s.presign != nil }

func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string) (adapter.UploadTarget, error) {
	if key == "" {
		return adapter.UploadTarget{}, fmt.Errorf("empty object key")
	}
	if !s.Configured() {
		return adapter.UploadTarget{
			Key:              key,
			PublicURL:        s.localBase + "/" + key,
			UseLocalFallback: true,
		}, nil
	}

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return adapter.UploadTarget{}, fmt.Errorf("presign put object: %w", err)
	}
	return adapter.UploadTarget{
		SignedURL: req.URL,
		Key:       key,
		PublicURL: s.publicBase + "/" + key,
	}, nil
}
