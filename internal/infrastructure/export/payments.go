// Package export writes finance payment batches as Excel workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
)

const sheetName = "Payments"

var headers = []string{
	"Voucher No", "Expense ID", "Payee", "Payee Email", "Expense Type",
	"Description", "Expense Date", "Requested Amount", "Payable Amount",
}

// PaymentExporter implements port.PaymentExporter with excelize
type PaymentExporter struct {
	logger *zap.Logger
}

// NewPaymentExporter creates a new PaymentExporter
func NewPaymentExporter(logger *zap.Logger) *PaymentExporter {
	return &PaymentExporter{logger: logger}
}

var _ port.PaymentExporter = (*PaymentExporter)(nil)

// ExportPayments writes one header row, one row per payment and a total row
func (e *PaymentExporter) ExportPayments(orgName string, rows []port.PaymentRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: orgName + " payment batch", Creator: "expense-reimbursement"}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range headers {
		e.setCell(f, cell(i, 1), h)
	}
	if err := f.SetCellStyle(sheetName, "A1", cell(len(headers)-1, 1), bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	total := 0.0
	for i, row := range rows {
		r := i + 2
		exp := row.Expense
		if row.Voucher != nil {
			e.setCell(f, cell(0, r), row.Voucher.VoucherNumber)
		}
		e.setCell(f, cell(1, r), exp.ID)
		if row.Creator != nil {
			e.setCell(f, cell(2, r), row.Creator.DisplayName())
			e.setCell(f, cell(3, r), row.Creator.Email)
		}
		e.setCell(f, cell(4, r), exp.ExpenseType)
		e.setCell(f, cell(5, r), exp.Description)
		e.setCell(f, cell(6, r), exp.IncurredOn.Format("2006-01-02"))
		e.setCell(f, cell(7, r), exp.Amount)
		e.setCell(f, cell(8, r), exp.PayableAmount())
		total += exp.PayableAmount()
	}

	totalRow := len(rows) + 2
	e.setCell(f, cell(7, totalRow), "Total")
	e.setCell(f, cell(8, totalRow), total)
	if err := f.SetCellStyle(sheetName, cell(7, totalRow), cell(8, totalRow), bold); err != nil {
		return nil, fmt.Errorf("failed to style total: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "I", 18); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	var buf *bytes.Buffer
	if buf, err = f.WriteToBuffer(); err != nil {
		e.logger.Error("Failed to write workbook", zap.Error(err))
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PaymentExporter) setCell(f *excelize.File, axis string, value interface{}) {
	if err := f.SetCellValue(sheetName, axis, value); err != nil {
		e.logger.Warn("Failed to set cell", zap.String("cell", axis), zap.Error(err))
	}
}

// cell converts a zero-based column and one-based row to an A1 reference
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
