package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type diagnosticRecorder interface {
	RecordDiagnostic(ctx context.Context, userID string, diag models.Diagnostic) error
}

// blobStore is satisfied by storage.LocalBucket and storage.GCSBucket.
type blobStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
	Delete(ctx context.Context, objectPath string) error
	SignedURL(ctx context.Context, owner, objectPath string) (string, time.Time, error)
}

// FileUpload carries an uploaded stream and its client supplied metadata.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// UploadPolicy validates uploads before they reach storage.
type UploadPolicy struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	mimeSet      map[string]struct{}
}

// NewUploadPolicy applies defaults and indexes the MIME allow-list.
func NewUploadPolicy(maxFileSize int64, allowed []string) UploadPolicy {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	if len(allowed) == 0 {
		allowed = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, mt := range allowed {
		set[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return UploadPolicy{MaxFileSize: maxFileSize, AllowedMIMEs: allowed, mimeSet: set}
}

// Validate checks size and content type and returns the effective MIME type.
func (p UploadPolicy) Validate(upload FileUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > p.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", p.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return "", err
	}
	if _, allowed := p.mimeSet[mimeType]; !allowed {
		return "", appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}
	return mimeType, nil
}

func detectMime(upload FileUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file reader missing")
	}
	if upload.MimeType != "" && upload.MimeType != "application/octet-stream" {
		return baseMime(upload.MimeType), nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return baseMime(http.DetectContentType(header[:n])), nil
}

// baseMime drops parameters such as "; charset=utf-8".
func baseMime(raw string) string {
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// objectName builds "<unix>_<rand><ext>" for a stored blob.
func objectName(original, mimeType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%d_%s%s", now.Unix(), randomSuffix(), ext)
}

func slugify(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	lastDash := false
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "text/csv":
		return ".csv"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, source string, log *models.AuditLog) {
	if audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = source
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to create audit log", zap.String("source", source), zap.Error(err))
	}
}

// recordDiagnostic stores the failure on the user record. It never fails the caller.
func recordDiagnostic(ctx context.Context, recorder diagnosticRecorder, logger *zap.Logger, userID, operation string, cause error) {
	if recorder == nil || cause == nil {
		return
	}
	diag := models.Diagnostic{Operation: operation, Message: cause.Error(), OccurredAt: time.Now().UTC()}
	if err := recorder.RecordDiagnostic(ctx, userID, diag); err != nil {
		logger.Warn("failed to record diagnostic", zap.String("user_id", userID), zap.String("operation", operation), zap.Error(err))
	}
}

func checklistCacheKey(userID string) string {
	return "checklist:" + userID
}
