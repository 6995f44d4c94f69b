package files

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/server/respond"
	"applicant-tracker/internal/shared/storage/object"
	localstore "applicant-tracker/internal/shared/storage/object/local"
)

// Handler serves objects of the local store. Private buckets require the signature
// issued by SignedURL; public buckets are open.
type Handler struct {
	Store *localstore.Store
}

// NewHandler constructs a Handler.
func NewHandler(store *localstore.Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches the file download route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/:bucket/*key", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	bucket := c.Param("bucket")
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !object.ValidBucket(bucket) || key == "" {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "file not found", nil)
		return
	}

	if !h.Store.IsPublic(bucket) {
		if err := h.Store.VerifySignature(bucket, key, c.Query("expires"), c.Query("sig")); err != nil {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "link is invalid or expired", nil)
			return
		}
	}

	rc, err := h.Store.Open(c.Request.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, object.ErrInvalidKey) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to open file", nil)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	var body io.Reader = rc
	if contentType == "" {
		sniffed, replay, err := object.Sniff(rc)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to read file", nil)
			return
		}
		contentType, body = sniffed, replay
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	if !h.Store.IsPublic(bucket) {
		c.Header("Cache-Control", "private, no-store")
	} else {
		c.Header("Cache-Control", "public, max-age=86400")
	}
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
