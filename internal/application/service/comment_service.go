package service

import (
	"context"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
)

const maxCommentLength = 4000

// CommentResult is a stored comment plus the receipt of its notifications
type CommentResult struct {
	Comment     *entity.Comment
	SideEffects *dispatcher.Receipt
}

// CommentService manages the discussion thread of an expense
type CommentService interface {
	Add(ctx context.Context, sess *session.Session, expenseID int64, body string) (*CommentResult, error)
	List(ctx context.Context, sess *session.Session, expenseID int64) ([]*entity.Comment, error)
}

type commentServiceImpl struct {
	expenseRepo port.ExpenseRepository
	commentRepo port.CommentRepository
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(
	expenseRepo port.ExpenseRepository,
	commentRepo port.CommentRepository,
	d dispatcher.Dispatcher,
	logger Logger,
) CommentService {
	return &commentServiceImpl{
		expenseRepo: expenseRepo,
		commentRepo: commentRepo,
		dispatcher:  d,
		logger:      orNop(logger),
	}
}

// Add stores a comment and notifies the other side of the expense
func (s *commentServiceImpl) Add(ctx context.Context, sess *session.Session, expenseID int64, body string) (*CommentResult, error) {
	expense, err := s.load(ctx, sess, expenseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionComment, expense); err != nil {
		return nil, err
	}

	body = clean(body)
	if body == "" {
		return nil, validationError("comment cannot be empty")
	}
	if len(body) > maxCommentLength {
		return nil, validationError("comment must be at most %d characters", maxCommentLength)
	}

	comment := &entity.Comment{ExpenseID: expense.ID, AuthorID: sess.UserID(), Body: body}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.logger.Info("Comment added", "expense_id", expense.ID, "comment_id", comment.ID, "author_id", comment.AuthorID)

	result := &CommentResult{Comment: comment}
	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeCommentAdded, expense.OrganizationID, expense.ID, sess.UserID(), map[string]interface{}{
			event.KeyCommentID: comment.ID,
			event.KeyActorRole: sess.Role.String(),
		})
		result.SideEffects = s.dispatcher.DispatchAsync(ctx, evt)
	}
	return result, nil
}

// List returns the thread oldest first
func (s *commentServiceImpl) List(ctx context.Context, sess *session.Session, expenseID int64) ([]*entity.Comment, error) {
	expense, err := s.load(ctx, sess, expenseID)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionViewExpense, expense); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByExpense(ctx, expense.ID)
}

func (s *commentServiceImpl) load(ctx context.Context, sess *session.Session, id int64) (*entity.Expense, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.expenseRepo.GetByID(ctx, sess.OrganizationID(), id)
}
