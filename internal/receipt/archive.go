package receipt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Archiver stores a copy of an issued fiscal receipt.
type Archiver interface {
	// Archive stores the raw receipt document under the given key.
	Archive(ctx context.Context, key string, document []byte) error
}

// s3Archiver implements Archiver on top of AWS S3.
type s3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Archiver creates an S3-based receipt archiver.
func NewS3Archiver(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Archiver, error) {
	logger = logger.With().Str("component", "receipt-archiver").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 receipt archiver initialised")

	return &s3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Archive uploads the receipt document.
func (a *s3Archiver) Archive(ctx context.Context, key string, document []byte) error {
	fullKey := a.prefix + key

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(document),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("bucket", a.bucket).
			Str("key", fullKey).
			Msg("failed to archive receipt")
		return fmt.Errorf("failed to archive receipt %s: %w", fullKey, err)
	}

	a.logger.Debug().Str("key", fullKey).Msg("receipt archived")
	return nil
}
