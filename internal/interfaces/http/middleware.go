package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authenticate verifies the bearer token, refreshes the local user profile and
// stores the identity in the request context
func (h *Handlers) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			h.fail(c, fmt.Errorf("%w: missing bearer token", errs.ErrUnauthenticated))
			return
		}

		ctx := c.Request.Context()
		id, err := h.deps.Identity.Authenticate(ctx, header)
		if err != nil {
			h.fail(c, err)
			return
		}

		if err := h.deps.Users.Upsert(ctx, &entity.User{ID: id.ID, Email: id.Email, FullName: id.Name}); err != nil {
			h.fail(c, err)
			return
		}

		c.Request = c.Request.WithContext(session.WithIdentity(ctx, id))
		c.Next()
	}
}

// organizationSession resolves :slug into a session for the caller's membership
func (h *Handlers) organizationSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := session.CurrentUser(ctx)
		if err != nil {
			h.fail(c, err)
			return
		}

		sess, err := h.deps.Services.Organization.OpenSession(ctx, id, c.Param("slug"))
		if err != nil {
			h.fail(c, err)
			return
		}

		c.Request = c.Request.WithContext(session.WithSession(ctx, sess))
		c.Next()
	}
}

// currentSession returns the session stored by organizationSession
func (h *Handlers) currentSession(c *gin.Context) (*session.Session, bool) {
	sess, err := session.FromContext(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return sess, true
}

// currentIdentity returns the identity stored by authenticate
func (h *Handlers) currentIdentity(c *gin.Context) (*entity.Identity, bool) {
	id, err := session.CurrentUser(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return id, true
}
