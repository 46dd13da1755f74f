package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

func TestPaymentExporter_WritesRowsAndTotal(t *testing.T) {
	approved := 900.0
	rows := []port.PaymentRow{
		{
			Expense: &entity.Expense{ID: 11, ExpenseType: "Meals", Description: "Client lunch", Amount: 950, ApprovedAmount: &approved,
				IncurredOn: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)},
			Voucher: &entity.Voucher{VoucherNumber: "PV-1-0001"},
			Creator: &entity.User{Email: "mia@example.com", FullName: "Mia Member"},
		},
		{
			Expense: &entity.Expense{ID: 12, ExpenseType: "Internet", Amount: 600,
				IncurredOn: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)},
		},
	}

	content, err := NewPaymentExporter(zap.NewNop()).ExportPayments("Acme", rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	get := func(axis string) string {
		v, err := f.GetCellValue(sheetName, axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Voucher No", get("A1"))
	assert.Equal(t, "PV-1-0001", get("A2"))
	assert.Equal(t, "11", get("B2"))
	assert.Equal(t, "Mia Member", get("C2"))
	assert.Equal(t, "2026-04-02", get("G2"))
	assert.Equal(t, "950", get("H2"))
	assert.Equal(t, "900", get("I2"))
	assert.Equal(t, "", get("C3"))
	assert.Equal(t, "600", get("I3"))
	assert.Equal(t, "Total", get("H4"))
	assert.Equal(t, "1500", get("I4"))
}

func TestPaymentExporter_EmptyBatch(t *testing.T) {
	content, err := NewPaymentExporter(zap.NewNop()).ExportPayments("Acme", nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue(sheetName, "I2")
	require.NoError(t, err)
	assert.Equal(t, "0", total)
}
