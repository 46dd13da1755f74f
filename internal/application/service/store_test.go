package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/application/workflow"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-reimbursement/migrations"
	"github.com/garyjia/expense-reimbursement/pkg/database"
)

// store is a migrated sqlite database with every repository wired to it
type store struct {
	tx            *sqlite.DB
	users         port.UserRepository
	orgs          port.OrganizationRepository
	members       port.MembershipRepository
	expenses      port.ExpenseRepository
	policies      port.PolicyRepository
	history       port.HistoryRepository
	comments      port.CommentRepository
	vouchers      port.VoucherRepository
	invites       port.InviteRepository
	links         port.InviteLinkRepository
	notifications port.NotificationRepository
}

func newStore(t *testing.T) *store {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "service.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrationsFS(migrations.FS))

	raw := db.DB
	return &store{
		tx:            sqlite.NewDB(raw, logger),
		users:         repository.NewUserRepository(raw, logger),
		orgs:          repository.NewOrganizationRepository(raw, logger),
		members:       repository.NewMembershipRepository(raw, logger),
		expenses:      repository.NewExpenseRepository(raw, logger),
		policies:      repository.NewPolicyRepository(raw, logger),
		history:       repository.NewHistoryRepository(raw, logger),
		comments:      repository.NewCommentRepository(raw, logger),
		vouchers:      repository.NewVoucherRepository(raw, logger),
		invites:       repository.NewInviteRepository(raw, logger),
		links:         repository.NewInviteLinkRepository(raw, logger),
		notifications: repository.NewNotificationRepository(raw, logger),
	}
}

func (s *store) identity(t *testing.T, id, email, name string) *entity.Identity {
	t.Helper()
	require.NoError(t, s.users.Upsert(context.Background(), &entity.User{ID: id, Email: email, FullName: name}))
	return &entity.Identity{ID: id, Email: email, Name: name}
}

func (s *store) orgService() OrganizationService {
	return NewOrganizationService(s.orgs, s.members, s.policies, s.tx, nil)
}

// organization founds an org owned by owner and returns the owner's session
func (s *store) organization(t *testing.T, owner *entity.Identity, name string) *session.Session {
	t.Helper()
	org, err := s.orgService().Create(context.Background(), owner, CreateOrganizationInput{Name: name})
	require.NoError(t, err)
	return &session.Session{Identity: owner, Organization: org, Role: entity.RoleOwner}
}

// join adds id to the session's organization and returns its session
func (s *store) join(t *testing.T, owner *session.Session, id *entity.Identity, role entity.Role) *session.Session {
	t.Helper()
	require.NoError(t, s.members.Create(context.Background(), &entity.Membership{
		OrganizationID: owner.OrganizationID(), UserID: id.ID, Role: role,
	}))
	return &session.Session{Identity: id, Organization: owner.Organization, Role: role}
}

func (s *store) engine(d dispatcher.Dispatcher) workflow.Engine {
	opts := []workflow.EngineOption{}
	if d != nil {
		opts = append(opts, workflow.WithDispatcher(d))
	}
	return workflow.NewEngine(s.expenses, s.history, s.policies, s.tx, opts...)
}

func (s *store) expenseService(d dispatcher.Dispatcher) ExpenseService {
	return NewExpenseService(s.expenses, s.history, s.policies, s.members, s.vouchers, s.engine(d), nil)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func meal(amount float64) ExpenseInput {
	return ExpenseInput{Amount: amount, ExpenseType: "Meals", IncurredOn: day(2026, 5, 4), Description: "Client lunch"}
}

func amountPtr(v float64) *float64 { return &v }

// fakeNotifier records messages and fails while failing is set
type fakeNotifier struct {
	mu      sync.Mutex
	channel string
	failing bool
	sent    []sentMessage
}

type sentMessage struct {
	to  string
	msg port.Message
}

func (f *fakeNotifier) Channel() string {
	if f.channel == "" {
		return entity.ChannelLog
	}
	return f.channel
}

func (f *fakeNotifier) Send(ctx context.Context, to string, msg port.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errSendFailed
	}
	f.sent = append(f.sent, sentMessage{to: to, msg: msg})
	return nil
}

func (f *fakeNotifier) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeMetrics counts what the services report
type fakeMetrics struct {
	mu         sync.Mutex
	redeemed   map[string]int
	deliveries map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{redeemed: map[string]int{}, deliveries: map[string]int{}}
}

func (m *fakeMetrics) ObserveTransition(action, outcome string, duration time.Duration) {}

func (m *fakeMetrics) NotificationDelivered(channel, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[channel+"/"+status]++
}

func (m *fakeMetrics) InviteRedeemed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redeemed[outcome]++
}

func (m *fakeMetrics) redemptions(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redeemed[outcome]
}

func (m *fakeMetrics) delivered(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliveries[key]
}
