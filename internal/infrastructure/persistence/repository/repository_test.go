package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/migrations"
	"github.com/garyjia/expense-reimbursement/pkg/database"
)

// newTestDB opens a migrated sqlite database in a temp dir
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrationsFS(migrations.FS))
	return db.DB
}

type fixture struct {
	db       *sql.DB
	users    *UserRepository
	orgs     *OrganizationRepository
	members  *MembershipRepository
	expenses *ExpenseRepository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	logger := zap.NewNop()
	return &fixture{
		db:       db,
		users:    NewUserRepository(db, logger).(*UserRepository),
		orgs:     NewOrganizationRepository(db, logger).(*OrganizationRepository),
		members:  NewMembershipRepository(db, logger).(*MembershipRepository),
		expenses: NewExpenseRepository(db, logger).(*ExpenseRepository),
	}
}

func (f *fixture) user(t *testing.T, id, email, name string) *entity.User {
	t.Helper()
	u := &entity.User{ID: id, Email: email, FullName: name}
	require.NoError(t, f.users.Upsert(context.Background(), u))
	return u
}

func (f *fixture) org(t *testing.T, slug string, owner *entity.User) *entity.Organization {
	t.Helper()
	o := &entity.Organization{Slug: slug, Name: "Org " + slug, CreatedBy: owner.ID}
	require.NoError(t, f.orgs.Create(context.Background(), o))
	require.NoError(t, f.members.Create(context.Background(), &entity.Membership{
		OrganizationID: o.ID, UserID: owner.ID, Role: entity.RoleOwner,
	}))
	return o
}

func (f *fixture) expense(t *testing.T, orgID int64, creatorID string, amount float64) *entity.Expense {
	t.Helper()
	e := &entity.Expense{
		OrganizationID: orgID,
		CreatorID:      creatorID,
		Amount:         amount,
		ExpenseType:    "Meals",
		IncurredOn:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Description:    "Team dinner",
	}
	require.NoError(t, f.expenses.Create(context.Background(), e))
	return e
}
