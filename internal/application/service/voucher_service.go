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
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// DefaultSignedURLTTL bounds how long a voucher download link works
const DefaultSignedURLTTL = 15 * time.Minute

// voucherStatuses are the statuses at or past manager approval on the payment path
var voucherStatuses = map[string]bool{
	entity.ExpenseStatusApproved:            true,
	entity.ExpenseStatusFinanceApproved:     true,
	entity.ExpenseStatusPaymentProcessed:    true,
	entity.ExpenseStatusPaymentNotProcessed: true,
}

// VoucherService manages payment vouchers and their rendered documents
type VoucherService interface {
	port.DocumentGenerator

	Create(ctx context.Context, sess *session.Session, expenseID int64) (*entity.Voucher, error)
	Get(ctx context.Context, sess *session.Session, voucherID int64) (*entity.Voucher, error)
	Generate(ctx context.Context, sess *session.Session, voucherID int64) (*port.GeneratedDocument, error)

	// HandleExpenseTransitioned creates or re-projects the voucher and renders it once finance approves
	HandleExpenseTransitioned(ctx context.Context, evt *event.Event) error
}

type voucherServiceImpl struct {
	expenseRepo port.ExpenseRepository
	voucherRepo port.VoucherRepository
	userRepo    port.UserRepository
	orgRepo     port.OrganizationRepository
	renderer    port.VoucherRenderer
	previewer   port.PreviewRenderer
	storage     port.FileStorage
	signer      port.URLSigner
	logger      Logger
	urlTTL      time.Duration
	now         func() time.Time
}

// VoucherOption configures the voucher service
type VoucherOption func(*voucherServiceImpl)

// WithPreviewRenderer enables first-page PNG previews
func WithPreviewRenderer(p port.PreviewRenderer) VoucherOption {
	return func(s *voucherServiceImpl) { s.previewer = p }
}

// WithSignedURLTTL overrides DefaultSignedURLTTL
func WithSignedURLTTL(ttl time.Duration) VoucherOption {
	return func(s *voucherServiceImpl) {
		if ttl > 0 {
			s.urlTTL = ttl
		}
	}
}

// WithVoucherClock overrides time.Now
func WithVoucherClock(now func() time.Time) VoucherOption {
	return func(s *voucherServiceImpl) { s.now = now }
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	expenseRepo port.ExpenseRepository,
	voucherRepo port.VoucherRepository,
	userRepo port.UserRepository,
	orgRepo port.OrganizationRepository,
	renderer port.VoucherRenderer,
	storage port.FileStorage,
	signer port.URLSigner,
	logger Logger,
	opts ...VoucherOption,
) VoucherService {
	s := &voucherServiceImpl{
		expenseRepo: expenseRepo,
		voucherRepo: voucherRepo,
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		renderer:    renderer,
		storage:     storage,
		signer:      signer,
		logger:      orNop(logger),
		urlTTL:      DefaultSignedURLTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create projects a voucher from an approved expense; an existing voucher is re-projected and returned
func (s *voucherServiceImpl) Create(ctx context.Context, sess *session.Session, expenseID int64) (*entity.Voucher, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	expense, err := s.expenseRepo.GetByID(ctx, sess.OrganizationID(), expenseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionCreateVoucher, expense); err != nil {
		return nil, err
	}
	if !voucherStatuses[expense.Status] {
		return nil, fmt.Errorf("%w: a voucher needs an approved expense, this one is %s", errs.ErrInvalidTransition, expense.Status)
	}
	return s.ensureVoucher(ctx, expense)
}

// Get returns a voucher to anyone who may view its expense
func (s *voucherServiceImpl) Get(ctx context.Context, sess *session.Session, voucherID int64) (*entity.Voucher, error) {
	voucher, expense, err := s.loadScoped(ctx, sess, voucherID)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionViewExpense, expense); err != nil {
		return nil, err
	}
	return s.refreshVoucher(ctx, voucher, expense)
}

// Generate (re)renders a voucher on request and returns a fresh download link
func (s *voucherServiceImpl) Generate(ctx context.Context, sess *session.Session, voucherID int64) (*port.GeneratedDocument, error) {
	voucher, expense, err := s.loadScoped(ctx, sess, voucherID)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionGenerateVoucherPDF, expense); err != nil {
		return nil, err
	}
	if voucher, err = s.refreshVoucher(ctx, voucher, expense); err != nil {
		return nil, err
	}
	return s.render(ctx, voucher)
}

// GenerateVoucherPDF re-projects the voucher from its expense, renders it and stores it
// at its fixed key, replacing any earlier rendering. The preview is best effort.
func (s *voucherServiceImpl) GenerateVoucherPDF(ctx context.Context, voucherID int64) (*port.GeneratedDocument, error) {
	voucher, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	expense, err := s.expenseRepo.GetByID(ctx, voucher.OrganizationID, voucher.ExpenseID)
	if err != nil {
		return nil, err
	}
	if voucher, err = s.refreshVoucher(ctx, voucher, expense); err != nil {
		return nil, err
	}
	return s.render(ctx, voucher)
}

func (s *voucherServiceImpl) render(ctx context.Context, voucher *entity.Voucher) (*port.GeneratedDocument, error) {
	pdf, err := s.renderer.RenderVoucher(voucher)
	if err != nil {
		s.logger.Error("Failed to render voucher", "voucher_id", voucher.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to render voucher %d: %v", errs.ErrExternalService, voucher.ID, err)
	}

	path := voucher.StorageKey()
	if err := s.storage.Save(ctx, path, pdf); err != nil {
		s.logger.Error("Failed to store voucher", "voucher_id", voucher.ID, "path", path, "error", err)
		return nil, fmt.Errorf("%w: failed to store voucher %d: %v", errs.ErrExternalService, voucher.ID, err)
	}

	previewPath := s.storePreview(ctx, voucher, pdf)

	generatedAt := s.now().UTC()
	if err := s.voucherRepo.UpdateDocument(ctx, voucher.ID, path, previewPath, generatedAt); err != nil {
		return nil, err
	}

	doc := &port.GeneratedDocument{Path: path, PreviewPath: previewPath, GeneratedAt: generatedAt}
	if s.signer != nil {
		doc.SignedURL, err = s.signer.SignedURL(path, s.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign voucher url: %w", err)
		}
	}

	s.logger.Info("Voucher generated", "voucher_id", voucher.ID, "expense_id", voucher.ExpenseID, "path", path, "bytes", len(pdf))
	return doc, nil
}

func (s *voucherServiceImpl) storePreview(ctx context.Context, voucher *entity.Voucher, pdf []byte) string {
	if s.previewer == nil {
		return ""
	}
	png, err := s.previewer.RenderPreview(pdf)
	if err != nil {
		s.logger.Error("Failed to render voucher preview", "voucher_id", voucher.ID, "error", err)
		return ""
	}
	path := voucher.PreviewKey()
	if err := s.storage.Save(ctx, path, png); err != nil {
		s.logger.Error("Failed to store voucher preview", "voucher_id", voucher.ID, "error", err)
		return ""
	}
	return path
}

// HandleExpenseTransitioned creates and renders the voucher once finance approves
func (s *voucherServiceImpl) HandleExpenseTransitioned(ctx context.Context, evt *event.Event) error {
	if evt.GetPayloadString(event.KeyNewStatus) != entity.ExpenseStatusFinanceApproved {
		return nil
	}

	expense, err := s.expenseRepo.GetByID(ctx, evt.OrganizationID, evt.ExpenseID)
	if err != nil {
		return err
	}
	voucher, err := s.ensureVoucher(ctx, expense)
	if err != nil {
		return err
	}
	_, err = s.render(ctx, voucher)
	return err
}

// ensureVoucher returns the expense's voucher projected from the expense as it is now,
// creating the voucher when there is none
func (s *voucherServiceImpl) ensureVoucher(ctx context.Context, expense *entity.Expense) (*entity.Voucher, error) {
	existing, err := s.voucherRepo.GetByExpenseID(ctx, expense.ID)
	if err == nil {
		return s.refreshVoucher(ctx, existing, expense)
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	voucher, err := s.project(ctx, expense, utils.NewVoucherNumber(expense.OrganizationID, s.now()))
	if err != nil {
		return nil, err
	}
	if err := s.voucherRepo.Create(ctx, voucher); err != nil {
		if !errors.Is(err, errs.ErrDuplicate) {
			return nil, err
		}
		// lost a race with another creator
		existing, err := s.voucherRepo.GetByExpenseID(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
		return s.refreshVoucher(ctx, existing, expense)
	}

	s.logger.Info("Voucher created", "voucher_id", voucher.ID, "expense_id", expense.ID, "number", voucher.VoucherNumber)
	return voucher, nil
}

// refreshVoucher rewrites a stored voucher whose expense has changed since it was projected,
// e.g. a custom amount set by finance or an edit after a rejection
func (s *voucherServiceImpl) refreshVoucher(ctx context.Context, voucher *entity.Voucher, expense *entity.Expense) (*entity.Voucher, error) {
	current, err := s.project(ctx, expense, voucher.VoucherNumber)
	if err != nil {
		return nil, err
	}
	previous := voucher.Amount
	if !voucher.Refresh(current) {
		return voucher, nil
	}
	if err := s.voucherRepo.UpdateProjection(ctx, voucher); err != nil {
		return nil, err
	}

	s.logger.Info("Voucher re-projected",
		"voucher_id", voucher.ID,
		"expense_id", expense.ID,
		"previous_amount", previous,
		"amount", voucher.Amount)
	return voucher, nil
}

func (s *voucherServiceImpl) project(ctx context.Context, expense *entity.Expense, number string) (*entity.Voucher, error) {
	var err error
	src := entity.VoucherSource{Expense: expense}
	if src.Organization, err = s.orgRepo.GetByID(ctx, expense.OrganizationID); err != nil {
		return nil, err
	}
	if src.Creator, err = s.userRepo.GetByID(ctx, expense.CreatorID); err != nil {
		return nil, err
	}
	if expense.HasApprover() {
		if src.Approver, err = s.userRepo.GetByID(ctx, expense.ApproverID); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}
	return entity.ProjectVoucher(src, number), nil
}

func (s *voucherServiceImpl) loadScoped(ctx context.Context, sess *session.Session, voucherID int64) (*entity.Voucher, *entity.Expense, error) {
	if err := requireSession(sess); err != nil {
		return nil, nil, err
	}
	voucher, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return nil, nil, err
	}
	if voucher.OrganizationID != sess.OrganizationID() {
		return nil, nil, fmt.Errorf("%w: voucher %d", errs.ErrNotFound, voucherID)
	}
	expense, err := s.expenseRepo.GetByID(ctx, sess.OrganizationID(), voucher.ExpenseID)
	if err != nil {
		return nil, nil, err
	}
	return voucher, expense, nil
}
