package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/application/service"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// CreateOrganizationRequest is the body of POST /orgs
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=120"`
	Slug string `json:"slug" binding:"omitempty,max=63"`
}

// RenameOrganizationRequest is the body of PATCH /orgs/:slug
type RenameOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=120"`
}

// ChangeRoleRequest is the body of PATCH /orgs/:slug/members/:userID/role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PolicyRequest is the body of PUT /orgs/:slug/policies
type PolicyRequest struct {
	ExpenseType string   `json:"expense_type" binding:"required,max=80"`
	UpperLimit  *float64 `json:"upper_limit" binding:"omitempty,gt=0"`
	Eligibility string   `json:"eligibility" binding:"max=200"`
	Conditions  string   `json:"conditions" binding:"max=1000"`
	PerUnitCost string   `json:"per_unit_cost" binding:"max=200"`
}

// OrganizationResponse is an organization with the caller's role in it
type OrganizationResponse struct {
	*entity.Organization
	Role entity.Role `json:"role"`
}

// CreateOrganization handles POST /api/v1/orgs
func (h *Handlers) CreateOrganization(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	org, err := h.deps.Services.Organization.Create(c.Request.Context(), id, service.CreateOrganizationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, OrganizationResponse{Organization: org, Role: entity.RoleOwner})
}

// ListOrganizations handles GET /api/v1/orgs
func (h *Handlers) ListOrganizations(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	orgs, err := h.deps.Services.Organization.ListForUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, orgs)
}

// GetOrganization handles GET /api/v1/orgs/:slug
func (h *Handlers) GetOrganization(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, OrganizationResponse{Organization: sess.Organization, Role: sess.Role})
}

// RenameOrganization handles PATCH /api/v1/orgs/:slug
func (h *Handlers) RenameOrganization(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req RenameOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	org, err := h.deps.Services.Organization.Rename(c.Request.Context(), sess, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, OrganizationResponse{Organization: org, Role: sess.Role})
}

// ListMembers handles GET /api/v1/orgs/:slug/members
func (h *Handlers) ListMembers(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	members, err := h.deps.Services.Membership.ListMembers(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, members)
}

// ChangeMemberRole handles PATCH /api/v1/orgs/:slug/members/:userID/role
func (h *Handlers) ChangeMemberRole(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	role, err := entity.ParseRole(req.Role)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errs.ErrValidation, err))
		return
	}

	userID := c.Param("userID")
	if err := h.deps.Services.Membership.ChangeRole(c.Request.Context(), sess, userID, role); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user_id": userID, "role": role})
}

// ListPolicies handles GET /api/v1/orgs/:slug/policies
func (h *Handlers) ListPolicies(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	policies, err := h.deps.Services.Organization.ListPolicies(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, policies)
}

// UpsertPolicy handles PUT /api/v1/orgs/:slug/policies
func (h *Handlers) UpsertPolicy(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	p := &entity.Policy{
		ExpenseType: req.ExpenseType,
		UpperLimit:  req.UpperLimit,
		Eligibility: req.Eligibility,
		Conditions:  req.Conditions,
		PerUnitCost: req.PerUnitCost,
	}
	if err := h.deps.Services.Organization.UpsertPolicy(c.Request.Context(), sess, p); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}
