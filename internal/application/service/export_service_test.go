package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

type fakeExporter struct {
	orgName string
	rows    []port.PaymentRow
	err     error
}

func (f *fakeExporter) ExportPayments(orgName string, rows []port.PaymentRow) ([]byte, error) {
	f.orgName = orgName
	f.rows = rows
	if f.err != nil {
		return nil, f.err
	}
	return []byte("xlsx"), nil
}

func TestExportService_ExportPayments(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	p := newPayroll(t, st)

	ready := p.approved(t, st, 420, domainwf.ActionManagerApprove, domainwf.ActionFinanceApprove)
	voucher, err := st.voucherService(&fakeRenderer{}, newMemStorage()).Create(ctx, p.finance, ready.ID)
	require.NoError(t, err)
	p.approved(t, st, 90, domainwf.ActionManagerApprove, domainwf.ActionFinanceApprove)
	p.approved(t, st, 55, domainwf.ActionManagerApprove)
	p.approved(t, st, 70, domainwf.ActionManagerApprove, domainwf.ActionFinanceApprove, domainwf.ActionMarkPaid)

	exporter := &fakeExporter{}
	svc := NewExportService(st.expenses, st.vouchers, st.users, exporter, nil).(*exportServiceImpl)
	svc.now = func() time.Time { return time.Date(2026, 4, 30, 18, 0, 0, 0, time.UTC) }

	out, err := svc.ExportPayments(ctx, p.finance)
	require.NoError(t, err)
	assert.Equal(t, "payments-acme-20260430.xlsx", out.Filename)
	assert.Equal(t, []byte("xlsx"), out.Content)
	assert.Equal(t, 2, out.Rows)

	assert.Equal(t, "Acme", exporter.orgName)
	require.Len(t, exporter.rows, 2)
	withVoucher := 0
	for _, row := range exporter.rows {
		assert.Equal(t, "Mia Member", row.Creator.DisplayName())
		if row.Voucher != nil {
			withVoucher++
			assert.Equal(t, voucher.ID, row.Voucher.ID)
		}
	}
	assert.Equal(t, 1, withVoucher)
}

func TestExportService_Rules(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	p := newPayroll(t, st)

	_, err := NewExportService(st.expenses, st.vouchers, st.users, &fakeExporter{}, nil).ExportPayments(ctx, p.manager)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	empty, err := NewExportService(st.expenses, st.vouchers, st.users, &fakeExporter{}, nil).ExportPayments(ctx, p.owner)
	require.NoError(t, err)
	assert.Zero(t, empty.Rows)

	_, err = NewExportService(st.expenses, st.vouchers, st.users, &fakeExporter{err: errors.New("disk full")}, nil).ExportPayments(ctx, p.finance)
	assert.Error(t, err)
}
