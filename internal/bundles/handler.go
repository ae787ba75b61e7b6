package bundles

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

// Handler serves bundle metadata and downloads.
type Handler struct {
	Store *Store
}

// NewHandler constructs a Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches bundle routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bundles/:id", h.get)
	rg.GET("/bundles/:id/download", h.download)
}

func (h *Handler) get(c *gin.Context) {
	bundle, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ToResponse(bundle))
}

func (h *Handler) download(c *gin.Context) {
	reader, bundle, err := h.Store.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", zipMIME)
	c.Header("Content-Disposition", "attachment; filename=\""+bundle.FileName+"\"")
	if bundle.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(bundle.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		telemetry.Warn("bundles.download_interrupted", map[string]any{
			"bundle_id": bundle.ID,
			"error":     err.Error(),
		})
	}
}

func writeError(c *gin.Context, err error) {
	var storageErr *StorageError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "bundle not found", nil)
	case errors.As(err, &storageErr):
		respond.Error(c, http.StatusBadGateway, "storage_error", "bundle storage unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load bundle", nil)
	}
}
