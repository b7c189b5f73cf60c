// Package export uploads rendered reports to S3.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidURL is returned for destinations that are not s3://bucket/key.
var ErrInvalidURL = errors.New("invalid s3 url")

// PutObjectAPI is the part of *s3.Client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Location is a bucket and object key.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseS3URL parses s3://bucket/key. A key ending in / is a prefix and gets
// defaultName appended.
func ParseS3URL(raw, defaultName string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key = path.Join(key, defaultName)
	}
	return Location{Bucket: u.Host, Key: key}, nil
}

// Uploader writes objects to S3.
type Uploader struct {
	client PutObjectAPI
}

func NewUploader(client PutObjectAPI) *Uploader {
	return &Uploader{client: client}
}

// NewS3Uploader loads the default AWS configuration for region and returns an
// uploader using it.
func NewS3Uploader(ctx context.Context, region string) (*Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewUploader(s3.NewFromConfig(cfg)), nil
}

// Upload stores body at loc.
func (u *Uploader) Upload(ctx context.Context, loc Location, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(loc.Bucket),
		Key:           aws.String(loc.Key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", loc, err)
	}
	return nil
}
