package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"localhire/internal/config"
	"localhire/internal/domain"
	"localhire/internal/metrics"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
)

// NewS3Client connects to AWS S3 or any S3-compatible endpoint.
func NewS3Client(cfg config.MediaConfig) (*s3.S3, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}
	return s3.New(sess), nil
}

type S3Uploader struct {
	client  s3iface.S3API
	bucket  string
	baseURL string
	maxSize int64
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewS3Uploader(client s3iface.S3API, cfg config.MediaConfig, maxSize int64, logger *zerolog.Logger) *S3Uploader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg),
		maxSize: maxSize,
		logger:  logger,
		now:     time.Now,
	}
}

func publicBase(cfg config.MediaConfig) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Upload stores f under folder with public-read access. Storage failures wrap
// domain.ErrUploadFailed; validation failures do not.
func (u *S3Uploader) Upload(ctx context.Context, folder string, f domain.File) (string, error) {
	ext, err := Validate(f, u.maxSize)
	if err != nil {
		return "", err
	}
	if _, err := f.Body.Seek(0, 0); err != nil {
		return "", fmt.Errorf("%w: rewind: %v", domain.ErrUploadFailed, err)
	}

	key := objectName(folder, ext, u.now())
	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f.Body,
		ContentLength: aws.Int64(f.Size),
		ContentType:   aws.String(contentType(f, ext)),
		ACL:           aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		metrics.IncUploadFailure()
		u.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed")
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	return u.baseURL + "/" + key, nil
}
