package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/bundles"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/resume/model"
)

const maxBodyBytes = 2 << 20

// Runner executes one tailoring request.
type Runner interface {
	Run(ctx context.Context, req model.GenerationRequest) (bundles.ArtifactBundle, error)
}

// Handler serves POST /generate.
type Handler struct {
	Runner Runner
}

// NewHandler constructs a Handler.
func NewHandler(r Runner) *Handler {
	return &Handler{Runner: r}
}

// RegisterRoutes attaches the generate route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	var req model.GenerationRequest
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "request body too large", nil)
		case errors.Is(err, io.EOF):
			respond.Error(c, http.StatusBadRequest, "validation_error", "request body is required", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		}
		return
	}
	c.Set(middleware.JobCountKey, len(req.Jobs))

	bundle, err := h.Runner.Run(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.BundleIDKey, bundle.ID)
	respond.Created(c, bundles.ToResponse(bundle))
}

func writeError(c *gin.Context, err error) {
	var (
		verr       *model.ValidationError
		storageErr *bundles.StorageError
	)
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request", verr.Problems)
	case errors.As(err, &storageErr):
		respond.Error(c, http.StatusBadGateway, "storage_error", "failed to store bundle", nil)
	case errors.Is(err, bundles.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate bundle", nil)
	}
}
