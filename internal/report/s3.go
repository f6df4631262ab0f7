package report

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/x-stp/saleprobe/internal/metrics"
	"github.com/x-stp/saleprobe/internal/util"
)

// S3Config configures report uploads. Empty fields fall back to the standard
// AWS config and credential chain.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every object key.
	Prefix string
	// Region to use for requests, e.g. "eu-west-1".
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
}

// objectPutter is the part of *s3.Client the uploader uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores finished reports in a bucket.
type S3Uploader struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader using the default AWS configuration chain,
// with optional overrides from cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Uploader{client: c, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey returns "<prefix>/<runID>/<sanitized file name>", leaving out an
// empty prefix.
func ObjectKey(prefix, runID, path string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, runID, util.SanitizeFilename(filepath.Base(path)))
	return strings.Join(parts, "/")
}

// Upload puts the file at path under the run's key and returns the key.
func (u *S3Uploader) Upload(ctx context.Context, path, runID, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := ObjectKey(u.prefix, runID, path)
	in := &s3.PutObjectInput{
		Bucket:   aws.String(u.bucket),
		Key:      aws.String(key),
		Body:     f,
		Metadata: map[string]string{"run-id": runID},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, in); err != nil {
		metrics.RecordUpload("error")
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("put s3://%s/%s: %s: %w", u.bucket, key, apiErr.ErrorCode(), err)
		}
		return "", fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	metrics.RecordUpload("ok")
	return key, nil
}
