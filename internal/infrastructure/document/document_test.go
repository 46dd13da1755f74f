package document

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

func sampleVoucher() *entity.Voucher {
	return &entity.Voucher{
		ID:             7,
		OrganizationID: 1,
		ExpenseID:      42,
		VoucherNumber:  "PV-1-20260430-01J",
		PayerName:      "Acme Private Limited",
		Amount:         1250.5,
		Purpose:        "Local Conveyance - 120 km at ₹3/km",
		CreditPerson:   "Mia Member",
		SignatureRef:   "Max Manager",
		IncurredOn:     time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt:      time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestVoucherRenderer_RendersPDF(t *testing.T) {
	r := NewVoucherRenderer("INR", zap.NewNop())

	pdf, err := r.RenderVoucher(sampleVoucher())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 500)

	_, err = r.RenderVoucher(nil)
	assert.Error(t, err)
}

func TestVoucherRenderer_Money(t *testing.T) {
	assert.Equal(t, "INR 1250.50", NewVoucherRenderer("INR", zap.NewNop()).money(1250.5))
	assert.Equal(t, "800", NewVoucherRenderer("", zap.NewNop()).money(800))
}

func TestPreviewRenderer_FirstPage(t *testing.T) {
	pdf, err := NewVoucherRenderer("INR", zap.NewNop()).RenderVoucher(sampleVoucher())
	require.NoError(t, err)

	out, err := NewPreviewRenderer().RenderPreview(pdf)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
	assert.Greater(t, img.Bounds().Dy(), img.Bounds().Dx())
}

func TestPreviewRenderer_RejectsGarbage(t *testing.T) {
	_, err := NewPreviewRenderer().RenderPreview([]byte("not a pdf"))
	assert.Error(t, err)
}
