package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/expense-reimbursement/internal/application/notify"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

const (
	defaultMaxAttempts = 5
	defaultRetryBatch  = 50
	defaultSendLimit   = 4
)

// NotificationService turns committed events into delivered, logged messages
type NotificationService interface {
	HandleExpenseTransitioned(ctx context.Context, evt *event.Event) error
	HandleCommentAdded(ctx context.Context, evt *event.Event) error

	// RetryFailed resends FAILED deliveries that still have attempts left and
	// returns how many went through
	RetryFailed(ctx context.Context) (int, error)

	// SendTest pushes one sample message of kind to email over every channel without logging it
	SendTest(ctx context.Context, email string, kind notify.Kind) error
}

type notificationServiceImpl struct {
	expenseRepo      port.ExpenseRepository
	userRepo         port.UserRepository
	orgRepo          port.OrganizationRepository
	commentRepo      port.CommentRepository
	notificationRepo port.NotificationRepository
	notifiers        []port.Notifier
	metrics          port.Metrics
	logger           Logger
	appURL           string
	maxAttempts      int
	retryBatch       int
	sendLimit        int
	now              func() time.Time
}

// NotificationOption configures the notification service
type NotificationOption func(*notificationServiceImpl)

// WithAppURL sets the base URL used for links in messages
func WithAppURL(url string) NotificationOption {
	return func(s *notificationServiceImpl) { s.appURL = strings.TrimRight(url, "/") }
}

// WithRetryPolicy bounds how often and how many failed deliveries are retried
func WithRetryPolicy(maxAttempts, batch int) NotificationOption {
	return func(s *notificationServiceImpl) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if batch > 0 {
			s.retryBatch = batch
		}
	}
}

// WithNotificationMetrics counts deliveries per channel and status
func WithNotificationMetrics(m port.Metrics) NotificationOption {
	return func(s *notificationServiceImpl) { s.metrics = m }
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	expenseRepo port.ExpenseRepository,
	userRepo port.UserRepository,
	orgRepo port.OrganizationRepository,
	commentRepo port.CommentRepository,
	notificationRepo port.NotificationRepository,
	notifiers []port.Notifier,
	logger Logger,
	opts ...NotificationOption,
) NotificationService {
	s := &notificationServiceImpl{
		expenseRepo:      expenseRepo,
		userRepo:         userRepo,
		orgRepo:          orgRepo,
		commentRepo:      commentRepo,
		notificationRepo: notificationRepo,
		notifiers:        notifiers,
		logger:           orNop(logger),
		maxAttempts:      defaultMaxAttempts,
		retryBatch:       defaultRetryBatch,
		sendLimit:        defaultSendLimit,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// expenseContext is everything a message about one expense needs
type expenseContext struct {
	expense *entity.Expense
	org     *entity.Organization
	parties notify.Parties
	actor   *entity.User
}

// HandleExpenseTransitioned notifies the parties named by the decision table
func (s *notificationServiceImpl) HandleExpenseTransitioned(ctx context.Context, evt *event.Event) error {
	kind, ok := notify.KindForAction(domainwf.Action(evt.GetPayloadString(event.KeyAction)))
	if !ok {
		return nil
	}

	ec, err := s.loadContext(ctx, evt)
	if err != nil {
		return err
	}

	data := s.baseData(ec)
	data.Reason = evt.GetPayloadString(event.KeyReason)
	data.CustomAmount = evt.GetPayloadBool(event.KeyCustomAmount)
	if amount, ok := evt.GetPayloadFloat(event.KeyApprovedAmount); ok {
		data.ApprovedAmount = &amount
	}

	return s.deliver(ctx, ec, notify.Trigger{
		Kind:      kind,
		ActorID:   evt.ActorID,
		ActorRole: entity.Role(evt.GetPayloadString(event.KeyActorRole)),
	}, data)
}

// HandleCommentAdded notifies the other side of the conversation
func (s *notificationServiceImpl) HandleCommentAdded(ctx context.Context, evt *event.Event) error {
	ec, err := s.loadContext(ctx, evt)
	if err != nil {
		return err
	}

	data := s.baseData(ec)
	commentID := evt.GetPayloadInt(event.KeyCommentID)
	comments, err := s.commentRepo.ListByExpense(ctx, ec.expense.ID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.ID == commentID {
			data.Comment = c.Body
			break
		}
	}

	return s.deliver(ctx, ec, notify.Trigger{
		Kind:      notify.KindComment,
		ActorID:   evt.ActorID,
		ActorRole: entity.Role(evt.GetPayloadString(event.KeyActorRole)),
	}, data)
}

func (s *notificationServiceImpl) loadContext(ctx context.Context, evt *event.Event) (*expenseContext, error) {
	expense, err := s.expenseRepo.GetByID(ctx, evt.OrganizationID, evt.ExpenseID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgRepo.GetByID(ctx, evt.OrganizationID)
	if err != nil {
		return nil, err
	}

	ec := &expenseContext{expense: expense, org: org}
	ec.parties.Creator = s.party(ctx, expense.CreatorID)
	if expense.HasApprover() {
		ec.parties.Approver = s.party(ctx, expense.ApproverID)
	}
	if evt.ActorID != "" {
		ec.actor, _ = s.userRepo.GetByID(ctx, evt.ActorID)
	}
	return ec, nil
}

// party resolves a user; an unknown user becomes a party without an email and is skipped
func (s *notificationServiceImpl) party(ctx context.Context, userID string) notify.Party {
	p := notify.Party{UserID: userID}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			s.logger.Error("Failed to load notification party", "user_id", userID, "error", err)
		}
		return p
	}
	p.Email = user.Email
	p.Name = user.DisplayName()
	return p
}

func (s *notificationServiceImpl) baseData(ec *expenseContext) notify.Data {
	return notify.Data{
		OrganizationName: ec.org.Name,
		ActorName:        ec.actor.DisplayName(),
		ExpenseType:      ec.expense.ExpenseType,
		Description:      ec.expense.Description,
		Amount:           ec.expense.Amount,
		Link:             s.link(ec),
	}
}

func (s *notificationServiceImpl) link(ec *expenseContext) string {
	if s.appURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/orgs/%s/expenses/%d", s.appURL, ec.org.Slug, ec.expense.ID)
}

// deliver renders one message per recipient and fans it out to every channel.
// Each failure is logged and recorded; the joined error only reaches the receipt.
func (s *notificationServiceImpl) deliver(ctx context.Context, ec *expenseContext, trigger notify.Trigger, data notify.Data) error {
	recipients := notify.SelectRecipients(trigger, ec.parties)
	if len(recipients) == 0 {
		s.logger.Info("No recipients for notification", "kind", string(trigger.Kind), "expense_id", ec.expense.ID)
		return nil
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sendLimit)

	for _, r := range recipients {
		d := data
		d.RecipientName = r.Name
		msg, err := notify.Render(trigger.Kind, d)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", trigger.Kind, err)
		}

		for _, n := range s.notifiers {
			recipient, notifier := r, n
			g.Go(func() error {
				if err := s.send(gctx, ec.expense, recipient.Email, notifier, msg); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return fmt.Errorf("%w: %d of %d deliveries failed: %v",
			errs.ErrExternalService, len(failures), len(recipients)*len(s.notifiers), errors.Join(failures...))
	}
	return nil
}

// send delivers one message over one channel and records the attempt
func (s *notificationServiceImpl) send(ctx context.Context, expense *entity.Expense, email string, n port.Notifier, msg port.Message) error {
	record := &entity.NotificationRecord{
		OrganizationID: expense.OrganizationID,
		ExpenseID:      expense.ID,
		RecipientEmail: email,
		Kind:           msg.Kind,
		Subject:        msg.Subject,
		Body:           msg.Body,
		Channel:        n.Channel(),
		Status:         entity.NotificationStatusPending,
	}
	if err := s.notificationRepo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to record notification", "expense_id", expense.ID, "channel", n.Channel(), "error", err)
		record = nil
	}

	return s.attempt(ctx, record, email, n, msg)
}

func (s *notificationServiceImpl) attempt(ctx context.Context, record *entity.NotificationRecord, email string, n port.Notifier, msg port.Message) error {
	sendErr := n.Send(ctx, email, msg)

	status := entity.NotificationStatusSent
	if sendErr != nil {
		status = entity.NotificationStatusFailed
		s.logger.Error("Notification delivery failed",
			"channel", n.Channel(),
			"kind", msg.Kind,
			"recipient", email,
			"error", sendErr)
	}
	if s.metrics != nil {
		s.metrics.NotificationDelivered(n.Channel(), status)
	}

	if record != nil {
		var err error
		if sendErr != nil {
			err = s.notificationRepo.MarkFailed(ctx, record.ID, sendErr.Error())
		} else {
			err = s.notificationRepo.MarkSent(ctx, record.ID, s.now())
		}
		if err != nil {
			s.logger.Error("Failed to update notification record", "notification_id", record.ID, "error", err)
		}
	}

	if sendErr != nil {
		return fmt.Errorf("%s to %s: %w", n.Channel(), email, sendErr)
	}
	return nil
}

// RetryFailed resends failed deliveries from the log
func (s *notificationServiceImpl) RetryFailed(ctx context.Context) (int, error) {
	records, err := s.notificationRepo.ListRetryable(ctx, s.maxAttempts, s.retryBatch)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	byChannel := make(map[string]port.Notifier, len(s.notifiers))
	for _, n := range s.notifiers {
		byChannel[n.Channel()] = n
	}

	sent := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		n, ok := byChannel[record.Channel]
		if !ok {
			if err := s.notificationRepo.MarkFailed(ctx, record.ID, "channel "+record.Channel+" is not configured"); err != nil {
				s.logger.Error("Failed to update notification record", "notification_id", record.ID, "error", err)
			}
			continue
		}

		msg := port.Message{Kind: record.Kind, Subject: record.Subject, Body: record.Body}
		if s.attempt(ctx, record, record.RecipientEmail, n, msg) == nil {
			sent++
		}
	}

	s.logger.Info("Notification retry pass finished", "candidates", len(records), "sent", sent)
	return sent, nil
}

// SendTest delivers a sample message without touching the delivery log
func (s *notificationServiceImpl) SendTest(ctx context.Context, email string, kind notify.Kind) error {
	approved := 950.0
	msg, err := notify.Render(kind, notify.Data{
		RecipientName:    email,
		OrganizationName: "Example Org",
		ActorName:        "Test Sender",
		ExpenseType:      "Meals",
		Description:      "Sample notification",
		Amount:           1200,
		ApprovedAmount:   &approved,
		Reason:           "Sample reason",
		Comment:          "Sample comment",
	})
	if err != nil {
		return err
	}

	var failures []error
	for _, n := range s.notifiers {
		if err := n.Send(ctx, email, msg); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", n.Channel(), err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %v", errs.ErrExternalService, errors.Join(failures...))
	}
	return nil
}
