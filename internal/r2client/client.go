// Package r2client provides a client for Cloudflare R2 / S3-compatible
// object storage. The catalog loader uses it to fetch published catalog
// snapshots, optionally zstd-compressed.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // R2 endpoint URL (e.g., https://account-id.r2.cloudflarestorage.com)
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Client provides R2 object storage operations.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates a new R2 client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("r2client: all config fields are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for R2
	})

	return &Client{
		s3:     s3Client,
		bucket: cfg.BucketName,
	}, nil
}

// Download downloads an object from R2. Caller must close the body.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("r2client: download %q: %w", key, err)
	}
	return result.Body, nil
}

// DownloadDecoded downloads an object and transparently decodes zstd
// compression when the key ends in ".zst". Caller must close the reader.
func (c *Client) DownloadDecoded(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := c.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(key, ".zst") {
		return body, nil
	}

	decoder, err := zstd.NewReader(body)
	if err != nil {
		_ = body.Close()
		return nil, fmt.Errorf("r2client: zstd decoder for %q: %w", key, err)
	}
	return &decodedBody{decoder: decoder, underlying: body}, nil
}

// decodedBody closes both the zstd decoder and the HTTP body.
type decodedBody struct {
	decoder    *zstd.Decoder
	underlying io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.decoder.Read(p)
}

func (d *decodedBody) Close() error {
	d.decoder.Close()
	return d.underlying.Close()
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
