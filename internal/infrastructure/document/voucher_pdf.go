// Package document renders payment vouchers to PDF and previews them as PNG.
package document

import (
	"bytes"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
)

const (
	labelWidth = 50.0
	rowHeight  = 10.0
)

// VoucherRenderer lays out a voucher on one A4 page
type VoucherRenderer struct {
	currency string
	logger   *zap.Logger
}

// NewVoucherRenderer creates a renderer printing amounts with the given currency code
func NewVoucherRenderer(currency string, logger *zap.Logger) *VoucherRenderer {
	return &VoucherRenderer{currency: currency, logger: logger}
}

var _ port.VoucherRenderer = (*VoucherRenderer)(nil)

// RenderVoucher returns the voucher as PDF bytes
func (r *VoucherRenderer) RenderVoucher(v *entity.Voucher) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("voucher is nil")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Payment voucher "+v.VoucherNumber, true)
	pdf.SetCreator("expense-reimbursement", true)
	if !v.CreatedAt.IsZero() {
		pdf.SetCreationDate(v.CreatedAt)
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(v.PayerName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "PAYMENT VOUCHER", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(95, 8, tr("Voucher No: "+v.VoucherNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 8, "Date: "+formatDate(v.IncurredOn), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Paid to", v.CreditPerson},
		{"Amount", r.money(v.Amount)},
		{"Purpose", v.Purpose},
		{"Expense reference", fmt.Sprintf("#%d", v.ExpenseID)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, rowHeight, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, rowHeight, tr(row[1]), "1", "L", false)
	}

	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(95, 8, "Approved by: "+tr(v.SignatureRef), "T", 0, "L", false, 0, "")
	pdf.CellFormat(95, 8, "Received by: "+tr(v.CreditPerson), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error("Failed to render voucher PDF",
			zap.Int64("voucher_id", v.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to render voucher pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *VoucherRenderer) money(v float64) string {
	if r.currency == "" {
		return policy.FormatAmount(v)
	}
	return r.currency + " " + policy.FormatAmount(v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
