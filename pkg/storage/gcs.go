package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBucket stores objects in Google Cloud Storage and issues V4 signed URLs.
type GCSBucket struct {
	client *gcs.Client
	bucket string
	ttl    time.Duration
}

// NewGCSBucket opens a client. An empty credentials file falls back to application default credentials.
func NewGCSBucket(ctx context.Context, bucket, credentialsFile string, ttl time.Duration) (*GCSBucket, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	opts := make([]option.ClientOption, 0, 1)
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket, ttl: ttl}, nil
}

// Put streams the reader into the object.
func (b *GCSBucket) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	w := b.client.Bucket(b.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gcs object: %w", err)
	}
	return nil
}

// Delete removes the object, ignoring objects that are already gone.
func (b *GCSBucket) Delete(ctx context.Context, objectPath string) error {
	err := b.client.Bucket(b.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object: %w", err)
	}
	return nil
}

// SignedURL returns a V4 GET URL. The owner is not embedded because GCS scopes access by signature.
func (b *GCSBucket) SignedURL(_ context.Context, _ string, objectPath string) (string, time.Time, error) {
	expiresAt := time.Now().Add(b.ttl)
	url, err := b.client.Bucket(b.bucket).SignedURL(objectPath, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: expiresAt,
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign gcs url: %w", err)
	}
	return url, expiresAt, nil
}

// CleanupOlderThan deletes objects under prefix last updated before now-ttl.
func (b *GCSBucket) CleanupOlderThan(ctx context.Context, prefix string, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	handle := b.client.Bucket(b.bucket)
	it := handle.Objects(ctx, &gcs.Query{Prefix: prefix})
	deleted := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("list gcs objects: %w", err)
		}
		if attrs.Updated.After(cutoff) {
			continue
		}
		if err := handle.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			return deleted, fmt.Errorf("delete gcs object: %w", err)
		}
		deleted = append(deleted, attrs.Name)
	}
	return deleted, nil
}

// Close releases the underlying client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
