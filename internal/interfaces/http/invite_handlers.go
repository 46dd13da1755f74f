package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/application/service"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// CreateInviteRequest is the body of POST /orgs/:slug/invites
type CreateInviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// CreateInviteLinkRequest is the body of POST /orgs/:slug/invite-links
type CreateInviteLinkRequest struct {
	Role      string     `json:"role" binding:"required"`
	MaxUses   *int       `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateInvite handles POST /api/v1/orgs/:slug/invites
func (h *Handlers) CreateInvite(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	invite, err := h.deps.Services.Invite.CreateInvite(c.Request.Context(), sess, service.CreateInviteInput{
		Email: req.Email,
		Role:  entity.Role(req.Role),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, invite)
}

// AcceptInvite handles POST /api/v1/invites/:token/accept
func (h *Handlers) AcceptInvite(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	membership, err := h.deps.Services.Invite.AcceptInvite(c.Request.Context(), id, c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, membership)
}

// CreateInviteLink handles POST /api/v1/orgs/:slug/invite-links
func (h *Handlers) CreateInviteLink(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req CreateInviteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	link, err := h.deps.Services.Invite.CreateLink(c.Request.Context(), sess, service.CreateLinkInput{
		Role:      entity.Role(req.Role),
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, link)
}

// ListInviteLinks handles GET /api/v1/orgs/:slug/invite-links
func (h *Handlers) ListInviteLinks(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	links, err := h.deps.Services.Invite.ListLinks(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, links)
}

// DeactivateInviteLink handles DELETE /api/v1/orgs/:slug/invite-links/:linkID
func (h *Handlers) DeactivateInviteLink(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	if err := h.deps.Services.Invite.DeactivateLink(c.Request.Context(), sess, c.Param("linkID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RedeemInviteLink handles POST /api/v1/invite-links/:linkID/redeem
func (h *Handlers) RedeemInviteLink(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	membership, err := h.deps.Services.Invite.RedeemLink(c.Request.Context(), id, c.Param("linkID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, membership)
}
