// Package ratestore keeps the rate table as a JSON object in S3-compatible
// object storage (AWS S3, MinIO, RustFS), so every instance can load the same
// rates at startup.
package ratestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/config"
	"go.uber.org/zap"
)

// MaxObjectSize bounds the rate table object read from the bucket.
const MaxObjectSize = 1 << 20

const contentType = "application/json"

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store reads and writes the rate table object.
type S3Store struct {
	client ObjectAPI
	bucket string
	key    string
	logger *zap.Logger
}

// Option configures an S3Store
type Option func(*S3Store)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3Store) {
		s.logger = logger
	}
}

// NewS3Store creates a store from configuration. Without an access key the
// default AWS credential chain is used.
func NewS3Store(ctx context.Context, cfg config.RateStoreConfig, opts ...Option) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("rate store bucket is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("rate store key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Key, opts...), nil
}

// NewS3StoreWithClient creates a store around an existing client.
func NewS3StoreWithClient(client ObjectAPI, bucket, key string, opts ...Option) *S3Store {
	s := &S3Store{client: client, bucket: bucket, key: key, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalizeEndpoint adds a scheme to a bare host:port. An empty endpoint
// keeps the SDK's regional AWS endpoint.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid rate store endpoint: %w", err)
	}
	return endpoint, nil
}

// Location returns the s3:// URI of the rate table object.
func (s *S3Store) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load reads the rate table. A missing object is ErrNotFound; a malformed one
// is ErrInvalidConfig.
func (s *S3Store) Load(ctx context.Context) (*taxes.RateTable, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: rate table %s", shared.ErrNotFound, s.Location())
		}
		return nil, fmt.Errorf("failed to get rate table %s: %w", s.Location(), err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table %s: %w", s.Location(), err)
	}
	if len(body) > MaxObjectSize {
		return nil, fmt.Errorf("%w: rate table %s exceeds %d bytes", shared.ErrInvalidConfig, s.Location(), MaxObjectSize)
	}

	percentages, err := config.ParseRates(string(body))
	if err != nil {
		return nil, err
	}
	table, err := taxes.NewRateTable(percentages)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tax rates loaded from object storage",
		zap.String("location", s.Location()),
		zap.Strings("rates", table.Names()),
	)
	return table, nil
}

// Save writes table as a JSON object of rate name to percentage.
func (s *S3Store) Save(ctx context.Context, table *taxes.RateTable) error {
	body, err := EncodeRates(table)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put rate table %s: %w", s.Location(), err)
	}
	s.logger.Info("tax rates saved to object storage",
		zap.String("location", s.Location()),
		zap.Int("count", table.Len()),
	)
	return nil
}

// EncodeRates renders table in the form ParseRates reads back. Percentages are
// written as JSON numbers with their exact decimal digits.
func EncodeRates(table *taxes.RateTable) ([]byte, error) {
	out := make(map[string]json.Number, table.Len())
	for name, pct := range table.Percentages() {
		out[name] = json.Number(pct.String())
	}
	return json.Marshal(out)
}
