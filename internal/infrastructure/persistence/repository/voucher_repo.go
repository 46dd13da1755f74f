package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
)

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	base
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{base: base{db: db}, logger: logger}
}

const voucherColumns = `
	id, organization_id, expense_id, voucher_number, payer_name, amount, purpose,
	credit_person, signature_ref, incurred_on, pdf_path, preview_path, generated_at, created_at`

func scanVoucher(s rowScanner) (*entity.Voucher, error) {
	var v entity.Voucher
	var generatedAt sql.NullTime
	err := s.Scan(
		&v.ID, &v.OrganizationID, &v.ExpenseID, &v.VoucherNumber, &v.PayerName, &v.Amount, &v.Purpose,
		&v.CreditPerson, &v.SignatureRef, &v.IncurredOn, &v.PDFPath, &v.PreviewPath, &generatedAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.GeneratedAt = timePtr(generatedAt)
	return &v, nil
}

// Create inserts a voucher; UNIQUE(expense_id) keeps one voucher per expense
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	query := `
		INSERT INTO vouchers (
			organization_id, expense_id, voucher_number, payer_name, amount, purpose,
			credit_person, signature_ref, incurred_on, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		v.OrganizationID,
		v.ExpenseID,
		v.VoucherNumber,
		v.PayerName,
		v.Amount,
		v.Purpose,
		v.CreditPerson,
		v.SignatureRef,
		v.IncurredOn.UTC(),
		ts,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: expense %d already has a voucher", errs.ErrDuplicate, v.ExpenseID)
		}
		r.logger.Error("Failed to create voucher", zap.Int64("expense_id", v.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	v.ID = id
	v.CreatedAt = ts
	return nil
}

// GetByID retrieves a voucher
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*entity.Voucher, error) {
	return r.getOne(ctx, "id", id)
}

// GetByExpenseID retrieves the voucher of an expense
func (r *VoucherRepository) GetByExpenseID(ctx context.Context, expenseID int64) (*entity.Voucher, error) {
	return r.getOne(ctx, "expense_id", expenseID)
}

func (r *VoucherRepository) getOne(ctx context.Context, column string, id int64) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE ` + column + ` = ?`

	v, err := scanVoucher(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if nf := notFound(err, "voucher with %s %d", column, id); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.String("column", column), zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

// UpdateProjection rewrites the expense-derived fields of a voucher
func (r *VoucherRepository) UpdateProjection(ctx context.Context, v *entity.Voucher) error {
	query := `
		UPDATE vouchers
		SET payer_name = ?, amount = ?, purpose = ?, credit_person = ?, signature_ref = ?, incurred_on = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		v.PayerName,
		v.Amount,
		v.Purpose,
		v.CreditPerson,
		v.SignatureRef,
		v.IncurredOn.UTC(),
		v.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher projection", zap.Int64("id", v.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: voucher %d", errs.ErrNotFound, v.ID)
	}
	return nil
}

// UpdateDocument records where the rendered PDF and preview were stored
func (r *VoucherRepository) UpdateDocument(ctx context.Context, id int64, pdfPath, previewPath string, generatedAt time.Time) error {
	query := `
		UPDATE vouchers
		SET pdf_path = ?, preview_path = ?, generated_at = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, pdfPath, previewPath, generatedAt.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update voucher document", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: voucher %d", errs.ErrNotFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
