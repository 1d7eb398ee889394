// Package s3media stores story images in an S3-compatible bucket.
package s3media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"travelstory/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// Config describes the bucket and how objects are addressed publicly.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL under which objects are readable, e.g. a CDN.
	// Defaults to Endpoint/Bucket.
	PublicURL string
	// Folder is the key prefix objects are stored under.
	Folder    string
	PathStyle bool
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Host implements domain.MediaHost on S3.
type Host struct {
	client    s3API
	bucket    string
	folder    string
	publicURL string
}

var _ domain.MediaHost = (*Host)(nil)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*Host, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3media: bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3media: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client s3API, cfg Config) *Host {
	public := cfg.PublicURL
	if public == "" {
		switch {
		case cfg.Endpoint != "":
			public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &Host{
		client:    client,
		bucket:    cfg.Bucket,
		folder:    strings.Trim(cfg.Folder, "/"),
		publicURL: strings.TrimRight(public, "/"),
	}
}

func (h *Host) key(id string) string {
	if h.folder == "" {
		return id
	}
	return h.folder + "/" + id
}

// Upload puts body under a fresh id with extension ext.
func (h *Host) Upload(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
	// The SDK needs a seekable body to sign the payload.
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	id := uuid.NewString() + ext
	key := h.key(id)

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	return &domain.MediaObject{ID: id, URL: h.publicURL + "/" + key}, nil
}

// Delete removes the object with id. S3 deletes are idempotent, so existence
// is checked first to report not found.
func (h *Host) Delete(ctx context.Context, id string) (bool, error) {
	key := h.key(id)
	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf("delete object %s: %w", key, err)
	}
	return true, nil
}

// IDFromURL returns the object id of a URL produced by Upload.
func (h *Host) IDFromURL(url string) (string, bool) {
	prefix := h.publicURL + "/"
	if h.folder != "" {
		prefix += h.folder + "/"
	}
	id, ok := strings.CutPrefix(url, prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
