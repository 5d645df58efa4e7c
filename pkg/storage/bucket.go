package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Bucket is the blob store behind requirement uploads, templates and generated documents.
type Bucket interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
	Delete(ctx context.Context, objectPath string) error
	SignedURL(ctx context.Context, owner, objectPath string) (string, time.Time, error)
	CleanupOlderThan(ctx context.Context, prefix string, ttl time.Duration) ([]string, error)
}

// LocalBucket serves LocalStorage objects through HMAC signed download links.
type LocalBucket struct {
	*LocalStorage
	signer    *SignedURLSigner
	urlPrefix string
}

// NewLocalBucket wires a disk store to a signer. urlPrefix is the public route that accepts tokens.
func NewLocalBucket(store *LocalStorage, signer *SignedURLSigner, urlPrefix string) *LocalBucket {
	return &LocalBucket{
		LocalStorage: store,
		signer:       signer,
		urlPrefix:    strings.TrimRight(urlPrefix, "/"),
	}
}

// SignedURL returns a link to the download route carrying a signed token.
func (b *LocalBucket) SignedURL(_ context.Context, owner, objectPath string) (string, time.Time, error) {
	token, expiresAt, err := b.signer.Generate(owner, objectPath)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign object url: %w", err)
	}
	return b.urlPrefix + "/" + token, expiresAt, nil
}

// Resolve validates a download token and returns the object path it grants.
func (b *LocalBucket) Resolve(token string) (string, error) {
	grant, err := b.signer.Parse(token, false)
	if err != nil {
		return "", err
	}
	return grant.ObjectPath, nil
}
