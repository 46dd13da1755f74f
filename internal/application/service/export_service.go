package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

const exportPageSize = 200

// PaymentExport is a rendered payment batch
type PaymentExport struct {
	Filename string
	Content  []byte
	Rows     int
}

// ExportService builds the finance payment batch
type ExportService interface {
	ExportPayments(ctx context.Context, sess *session.Session) (*PaymentExport, error)
}

type exportServiceImpl struct {
	expenseRepo port.ExpenseRepository
	voucherRepo port.VoucherRepository
	userRepo    port.UserRepository
	exporter    port.PaymentExporter
	logger      Logger
	now         func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(
	expenseRepo port.ExpenseRepository,
	voucherRepo port.VoucherRepository,
	userRepo port.UserRepository,
	exporter port.PaymentExporter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		expenseRepo: expenseRepo,
		voucherRepo: voucherRepo,
		userRepo:    userRepo,
		exporter:    exporter,
		logger:      orNop(logger),
		now:         time.Now,
	}
}

// ExportPayments lists every finance-approved expense awaiting payment with its voucher and payee
func (s *exportServiceImpl) ExportPayments(ctx context.Context, sess *session.Session) (*PaymentExport, error) {
	if err := authorize(sess, authz.ActionExportPayments); err != nil {
		return nil, err
	}

	var rows []port.PaymentRow
	users := make(map[string]*entity.User)

	for offset := 0; ; offset += exportPageSize {
		page, err := s.expenseRepo.List(ctx, entity.ExpenseFilter{
			OrganizationID: sess.OrganizationID(),
			Statuses:       []string{entity.ExpenseStatusFinanceApproved},
			Limit:          exportPageSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, err
		}

		for _, expense := range page {
			row := port.PaymentRow{Expense: expense}

			voucher, err := s.voucherRepo.GetByExpenseID(ctx, expense.ID)
			switch {
			case err == nil:
				row.Voucher = voucher
			case !errors.Is(err, errs.ErrNotFound):
				return nil, err
			}

			creator, ok := users[expense.CreatorID]
			if !ok {
				creator, err = s.userRepo.GetByID(ctx, expense.CreatorID)
				if err != nil && !errors.Is(err, errs.ErrNotFound) {
					return nil, err
				}
				users[expense.CreatorID] = creator
			}
			row.Creator = creator

			rows = append(rows, row)
		}

		if len(page) < exportPageSize {
			break
		}
	}

	content, err := s.exporter.ExportPayments(sess.Organization.Name, rows)
	if err != nil {
		s.logger.Error("Failed to export payments", "organization_id", sess.OrganizationID(), "error", err)
		return nil, fmt.Errorf("failed to export payments: %w", err)
	}

	s.logger.Info("Payment batch exported", "organization_id", sess.OrganizationID(), "rows", len(rows), "actor_id", sess.UserID())
	return &PaymentExport{
		Filename: fmt.Sprintf("payments-%s-%s.xlsx", sess.Organization.Slug, s.now().UTC().Format("20060102")),
		Content:  content,
		Rows:     len(rows),
	}, nil
}
