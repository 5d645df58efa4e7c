package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/pkg/storage"
)

func newTestBucket(t *testing.T, ttl time.Duration) *storage.LocalBucket {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return storage.NewLocalBucket(store, storage.NewSignedURLSigner("secret", ttl), "/api/v1/files")
}

func tokenFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

func TestFileHandlerDownload(t *testing.T) {
	bucket := newTestBucket(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, bucket.Put(ctx, "exports/u1/timelogs.csv", bytes.NewReader([]byte("Date,Hours\n")), "text/csv"))
	url, _, err := bucket.SignedURL(ctx, "u1", "exports/u1/timelogs.csv")
	require.NoError(t, err)

	h := NewFileHandler(bucket)
	c, w := newTestContext(http.MethodGet, url, nil)
	c.Params = gin.Params{{Key: "token", Value: tokenFromURL(url)}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Date,Hours\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timelogs.csv")
}

func TestFileHandlerRejectsBadToken(t *testing.T) {
	h := NewFileHandler(newTestBucket(t, time.Hour))
	c, w := newTestContext(http.MethodGet, "/api/v1/files/garbage", nil)
	c.Params = gin.Params{{Key: "token", Value: "garbage"}}

	h.Download(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid link")
}

func TestFileHandlerMissingObject(t *testing.T) {
	bucket := newTestBucket(t, time.Hour)
	url, _, err := bucket.SignedURL(context.Background(), "u1", "exports/u1/gone.csv")
	require.NoError(t, err)

	h := NewFileHandler(bucket)
	c, w := newTestContext(http.MethodGet, url, nil)
	c.Params = gin.Params{{Key: "token", Value: tokenFromURL(url)}}
	h.Download(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

type expiredSource struct{}

func (expiredSource) Resolve(string) (string, error) {
	return "", storage.ErrExpiredToken
}

func (expiredSource) Open(string) (*os.File, error) {
	return nil, errors.New("unreachable")
}

func TestFileHandlerExpiredLink(t *testing.T) {
	h := NewFileHandler(expiredSource{})
	c, w := newTestContext(http.MethodGet, "/api/v1/files/x", nil)
	c.Params = gin.Params{{Key: "token", Value: "x"}}

	h.Download(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "link expired")
}
