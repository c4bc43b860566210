package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"imageresizer/shared/log"
)

// S3Store writes objects into a bucket, optionally below a key prefix.
type S3Store struct {
	s3       s3iface.S3API
	bucket   string
	prefix   string
	endpoint string
	logger   *zap.Logger
}

func NewS3Store(client s3iface.S3API, bucket, prefix, endpoint string, logger *zap.Logger) *S3Store {
	return &S3Store{
		s3:       client,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		endpoint: strings.TrimRight(endpoint, "/"),
		logger:   logger,
	}
}

// Put returns a path-style URL on the configured endpoint, or an s3:// URL
// when no endpoint is set.
func (s *S3Store) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	logger := log.LoggerWithTrace(ctx, s.logger)

	cleaned, err := cleanName(name)
	if err != nil {
		logger.Error(err.Error(), zap.String("name", name))
		return "", fmt.Errorf("%w: %s", err, name)
	}

	key := cleaned
	if s.prefix != "" {
		key = s.prefix + "/" + cleaned
	}

	_, err = s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		logger.Error("Error uploading object", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logger.Debug("Uploaded object", zap.String("bucket", s.bucket), zap.String("key", key))

	if s.endpoint == "" {
		return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
	}
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}
