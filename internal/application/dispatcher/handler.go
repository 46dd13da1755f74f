package dispatcher

import (
	"context"

	"github.com/garyjia/expense-reimbursement/internal/domain/event"
)

// Handler reacts to a committed domain event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
