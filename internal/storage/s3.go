package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"studentpay-backend/internal/config"
	"studentpay-backend/internal/logging"
)

// ObjectStorage accepts named uploads and serves them from a stable public URL
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	PublicURL(key string) string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores objects in an S3-compatible bucket (Cloudflare R2, Supabase, AWS)
type S3Storage struct {
	client        putObjectAPI
	bucket        string
	endpoint      string
	publicBaseURL string
	logger        *logging.Logger
}

func NewS3Storage(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Storage(client, cfg, logger), nil
}

func newS3Storage(client putObjectAPI, cfg config.StorageConfig, logger *logging.Logger) *S3Storage {
	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger.Named("storage"),
	}
}

// Upload writes body under key, overwriting any previous object, and returns its public URL
func (s *S3Storage) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		s.logger.Error(ctx, "upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info(ctx, "object uploaded", zap.String("key", key), zap.Int("bytes", len(body)))
	return s.PublicURL(key), nil
}

// PublicURL is the public base URL (or endpoint/bucket) joined with the escaped key
func (s *S3Storage) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escaped
	}
	return s.endpoint + "/" + s.bucket + "/" + escaped
}

// ReceiptKey is where a receipt PDF is stored. Keyed by hash so re-uploads overwrite.
func ReceiptKey(hash string) string {
	return "receipts/" + hash + ".pdf"
}

// AssetKey is where a department's logo or signature image is stored
func AssetKey(departmentID int, kind, ext string) string {
	return fmt.Sprintf("departments/%d/%s%s", departmentID, kind, ext)
}
