package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/response"
	"github.com/noah-isme/internquest-api/pkg/storage"
)

type signedObjectSource interface {
	Resolve(token string) (string, error)
	Open(objectPath string) (*os.File, error)
}

// FileHandler streams locally stored objects behind signed tokens.
type FileHandler struct {
	objects signedObjectSource
}

// NewFileHandler constructs the handler.
func NewFileHandler(objects signedObjectSource) *FileHandler {
	return &FileHandler{objects: objects}
}

// Download godoc
// @Summary Download a stored file via signed token
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	if h.objects == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file storage is not served locally"))
		return
	}
	objectPath, err := h.objects.Resolve(c.Param("token"))
	if err != nil {
		if errors.Is(err, storage.ErrExpiredToken) {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "link expired"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid link"))
		return
	}
	file, err := h.objects.Open(objectPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}
	name := path.Base(objectPath)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = sniffContentType(file)
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", name))
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

func sniffContentType(f *os.File) string {
	head := make([]byte, 512)
	n, _ := f.Read(head)
	_, _ = f.Seek(0, io.SeekStart)
	return http.DetectContentType(head[:n])
}
