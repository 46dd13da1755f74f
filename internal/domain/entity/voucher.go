package entity

import (
	"fmt"
	"time"
)

// Voucher is the printable payment record of an approved expense.
// Its fields are a projection of the expense, refreshed whenever the voucher is read or rendered.
type Voucher struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	ExpenseID      int64      `json:"expense_id"`
	VoucherNumber  string     `json:"voucher_number"`
	PayerName      string     `json:"payer_name"`
	Amount         float64    `json:"amount"`
	Purpose        string     `json:"purpose"`
	CreditPerson   string     `json:"credit_person"`
	SignatureRef   string     `json:"signature_ref,omitempty"`
	IncurredOn     time.Time  `json:"incurred_on"`
	PDFPath        string     `json:"pdf_path,omitempty"`
	PreviewPath    string     `json:"preview_path,omitempty"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// VoucherSource holds the records a voucher is projected from
type VoucherSource struct {
	Expense      *Expense
	Organization *Organization
	Creator      *User
	Approver     *User
}

// ProjectVoucher derives a voucher from its expense. Nothing is copied by hand afterwards;
// a changed expense means a new projection.
func ProjectVoucher(src VoucherSource, number string) *Voucher {
	exp := src.Expense
	purpose := exp.ExpenseType
	if exp.Description != "" {
		purpose = fmt.Sprintf("%s - %s", exp.ExpenseType, exp.Description)
	}

	v := &Voucher{
		OrganizationID: exp.OrganizationID,
		ExpenseID:      exp.ID,
		VoucherNumber:  number,
		Amount:         exp.PayableAmount(),
		Purpose:        purpose,
		CreditPerson:   src.Creator.DisplayName(),
		IncurredOn:     exp.IncurredOn,
	}
	if src.Organization != nil {
		v.PayerName = src.Organization.Name
	}
	if src.Approver != nil {
		v.SignatureRef = src.Approver.DisplayName()
	}
	return v
}

// Refresh copies the projected fields of p onto v and reports whether any changed.
// Identity, number and document fields stay as they are.
func (v *Voucher) Refresh(p *Voucher) bool {
	changed := !SameAmount(v.Amount, p.Amount) ||
		v.PayerName != p.PayerName ||
		v.Purpose != p.Purpose ||
		v.CreditPerson != p.CreditPerson ||
		v.SignatureRef != p.SignatureRef ||
		!v.IncurredOn.Equal(p.IncurredOn)

	v.PayerName = p.PayerName
	v.Amount = p.Amount
	v.Purpose = p.Purpose
	v.CreditPerson = p.CreditPerson
	v.SignatureRef = p.SignatureRef
	v.IncurredOn = p.IncurredOn
	return changed
}

// StorageKey is the object key the rendered PDF is written to
func (v *Voucher) StorageKey() string {
	return fmt.Sprintf("vouchers/%d/%d.pdf", v.OrganizationID, v.ID)
}

// PreviewKey is the object key of the first-page PNG preview
func (v *Voucher) PreviewKey() string {
	return fmt.Sprintf("vouchers/%d/%d.png", v.OrganizationID, v.ID)
}
