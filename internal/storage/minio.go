// Package storage wraps the S3-compatible object storage of the hosted
// backend. Intake attachments are written to a private bucket and handed out
// only through presigned links.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ltgsite/internal/config"
)

// SignedLinkTTL is the lifetime of download links sent by mail.
const SignedLinkTTL = 7 * 24 * time.Hour

// Client uploads to and signs links for a single bucket.
type Client struct {
	internalClient *minio.Client
	bucketName     string
}

// NewClient connects to the storage endpoint and checks that the bucket exists.
// The bucket is owned by the hosted backend and is never created here.
func NewClient(cfg config.StorageConfig) (*Client, error) {
	bucketLookup := minio.BucketLookupAuto
	switch strings.ToLower(strings.TrimSpace(cfg.BucketLookup)) {
	case "", "auto":
		bucketLookup = minio.BucketLookupAuto
	case "dns":
		bucketLookup = minio.BucketLookupDNS
	case "path":
		bucketLookup = minio.BucketLookupPath
	default:
		return nil, fmt.Errorf("invalid storage bucket lookup %q", cfg.BucketLookup)
	}

	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	internalClient, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil && !IsNoSuchBucket(err) {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &Client{internalClient: internalClient, bucketName: cfg.Bucket}, nil
}

// splitEndpoint accepts either a bare host[:port] or a URL. The client
// cannot address an endpoint below a path prefix, so a path is rejected.
func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("storage endpoint missing")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse storage endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid storage endpoint, host missing")
	}
	if strings.Trim(u.Path, "/") != "" {
		return "", false, fmt.Errorf("storage endpoint %q must not contain a path", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

// UploadFile stores an object in the private bucket.
func (c *Client) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	info, err := c.internalClient.PutObject(ctx, c.bucketName, objectName, reader, size, opts)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return &info, nil
}

// SignedURL returns a time-limited download link for an existing object.
// Missing objects are reported instead of producing a dead link.
func (c *Client) SignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if _, err := c.internalClient.StatObject(ctx, c.bucketName, objectKey, minio.StatObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return "", fmt.Errorf("object %q not found", objectKey)
		}
		return "", fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	params := url.Values{}
	params.Set("response-content-disposition", "attachment")
	signed, err := c.internalClient.PresignedGetObject(ctx, c.bucketName, objectKey, ttl, params)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return signed.String(), nil
}
