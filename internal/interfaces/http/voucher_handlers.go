package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateVoucher handles POST /api/v1/orgs/:slug/expenses/:id/voucher
func (h *Handlers) CreateVoucher(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	voucher, err := h.deps.Services.Voucher.Create(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, voucher)
}

// GetVoucher handles GET /api/v1/orgs/:slug/vouchers/:voucherID
func (h *Handlers) GetVoucher(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "voucherID")
	if !ok {
		return
	}

	voucher, err := h.deps.Services.Voucher.Get(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, voucher)
}

// GenerateVoucherPDF handles POST /api/v1/orgs/:slug/vouchers/:voucherID/pdf
func (h *Handlers) GenerateVoucherPDF(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "voucherID")
	if !ok {
		return
	}

	doc, err := h.deps.Services.Voucher.Generate(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, doc)
}

// ExportPayments handles GET /api/v1/orgs/:slug/exports/payments
func (h *Handlers) ExportPayments(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	export, err := h.deps.Services.Export.ExportPayments(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(export.Rows))
	c.Data(http.StatusOK, xlsxContentType, export.Content)
}
