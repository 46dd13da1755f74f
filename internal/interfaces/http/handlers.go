package http

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{deps: deps, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// MeResponse is the caller's identity and organizations
type MeResponse struct {
	User          *entity.Identity               `json:"user"`
	Organizations []*entity.OrganizationWithRole `json:"organizations"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.deps.Health != nil {
		health := h.deps.Health()
		resp.Components = health.Components
		if !health.Overall {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	orgs, err := h.deps.Services.Organization.ListForUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, MeResponse{User: id, Organizations: orgs})
}

// DownloadFile handles GET /files/*path?token=. The signed token is the only credential.
func (h *Handlers) DownloadFile(c *gin.Context) {
	granted, err := h.deps.Signer.Verify(c.Query("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	requested := strings.TrimPrefix(c.Param("path"), "/")
	if path.Clean(requested) != path.Clean(granted) {
		h.fail(c, fmt.Errorf("%w: token does not grant %s", errs.ErrForbidden, requested))
		return
	}

	content, err := h.deps.Storage.Read(c.Request.Context(), granted)
	if err != nil {
		h.fail(c, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(granted))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(granted)))
	c.Data(http.StatusOK, contentType, content)
}
