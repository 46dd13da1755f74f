package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// Message is a rendered notification
type Message struct {
	Kind        string
	Subject     string
	Body        string
	StatusLabel string
}

// Notifier delivers a message to one recipient over one channel
type Notifier interface {
	Channel() string
	Send(ctx context.Context, recipientEmail string, msg Message) error
}

// GeneratedDocument is the result of rendering a voucher
type GeneratedDocument struct {
	Path        string    `json:"path"`
	SignedURL   string    `json:"signed_url"`
	PreviewPath string    `json:"preview_path,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DocumentGenerator renders a voucher to PDF and stores it.
// Re-invocation overwrites the stored PDF at the same key.
type DocumentGenerator interface {
	GenerateVoucherPDF(ctx context.Context, voucherID int64) (*GeneratedDocument, error)
}

// VoucherRenderer lays out a voucher as a PDF document
type VoucherRenderer interface {
	RenderVoucher(voucher *entity.Voucher) ([]byte, error)
}

// PreviewRenderer rasterizes the first page of a PDF to PNG
type PreviewRenderer interface {
	RenderPreview(pdf []byte) ([]byte, error)
}

// IdentityProvider verifies a bearer credential
type IdentityProvider interface {
	Authenticate(ctx context.Context, bearer string) (*entity.Identity, error)
}

// PaymentRow is one line of a finance payment batch
type PaymentRow struct {
	Expense *entity.Expense
	Voucher *entity.Voucher
	Creator *entity.User
}

// PaymentExporter writes a payment batch as a spreadsheet
type PaymentExporter interface {
	ExportPayments(orgName string, rows []PaymentRow) ([]byte, error)
}

// Metrics records business counters
type Metrics interface {
	ObserveTransition(action, outcome string, duration time.Duration)
	NotificationDelivered(channel, status string)
	InviteRedeemed(outcome string)
}
