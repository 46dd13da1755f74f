// Package service implements the use cases behind the HTTP API. Every method takes the
// caller's session explicitly and checks it against the authz rule table.
package service

import (
	"fmt"
	"strings"

	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

func requireSession(sess *session.Session) error {
	if sess == nil || sess.Identity == nil || sess.Organization == nil {
		return fmt.Errorf("%w: no organization session", errs.ErrUnauthenticated)
	}
	return nil
}

// authorize checks an organization-level action
func authorize(sess *session.Session, action authz.Action) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return authz.Authorize(action, authz.Subject{ActorID: sess.UserID(), ActorRole: sess.Role})
}

// authorizeExpense checks an action scoped to one expense's parties
func authorizeExpense(sess *session.Session, action authz.Action, e *entity.Expense) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return authz.Authorize(action, authz.Subject{
		ActorID:    sess.UserID(),
		ActorRole:  sess.Role,
		CreatorID:  e.CreatorID,
		ApproverID: e.ApproverID,
	})
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errs.ErrValidation, fmt.Sprintf(format, args...))
}

func clean(s string) string {
	return utils.SanitizeString(s)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
