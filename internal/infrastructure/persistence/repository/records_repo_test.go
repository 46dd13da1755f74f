package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

func TestPolicyRepository_UpsertReplacesByExpenseType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "")
	org := f.org(t, "acme", owner)
	repo := NewPolicyRepository(f.db, zap.NewNop())

	for _, p := range entity.DefaultPolicies() {
		p := p
		p.OrganizationID = org.ID
		require.NoError(t, repo.Upsert(ctx, &p))
	}

	meals := &entity.Policy{OrganizationID: org.ID, ExpenseType: "Meals", UpperLimit: amtPtr(1200), Eligibility: entity.EligibilityAll}
	require.NoError(t, repo.Upsert(ctx, meals))

	policies, err := repo.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, policies, len(entity.DefaultPolicies()))

	for _, p := range policies {
		switch p.ExpenseType {
		case "Meals":
			require.NotNil(t, p.UpperLimit)
			assert.Equal(t, 1200.0, *p.UpperLimit)
			assert.Equal(t, meals.ID, p.ID)
		case "Local Conveyance":
			assert.Nil(t, p.UpperLimit)
		}
	}
}

func TestVoucherRepository_OnePerExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "Olive Owner")
	org := f.org(t, "acme", owner)
	e := f.expense(t, org.ID, owner.ID, 99.5)
	repo := NewVoucherRepository(f.db, zap.NewNop())

	v := entity.ProjectVoucher(entity.VoucherSource{Expense: e, Organization: org, Creator: owner}, "VCH-1")
	require.NoError(t, repo.Create(ctx, v))

	again := entity.ProjectVoucher(entity.VoucherSource{Expense: e, Organization: org, Creator: owner}, "VCH-2")
	assert.ErrorIs(t, repo.Create(ctx, again), errs.ErrDuplicate)

	byExpense, err := repo.GetByExpenseID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, byExpense.ID)
	assert.Equal(t, 99.5, byExpense.Amount)
	assert.Equal(t, "Olive Owner", byExpense.CreditPerson)
	assert.Nil(t, byExpense.GeneratedAt)

	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateDocument(ctx, v.ID, v.StorageKey(), v.PreviewKey(), at))

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.StorageKey(), got.PDFPath)
	require.NotNil(t, got.GeneratedAt)
	assert.True(t, at.Equal(*got.GeneratedAt))

	assert.ErrorIs(t, repo.UpdateDocument(ctx, 404, "x", "y", at), errs.ErrNotFound)
	_, err = repo.GetByExpenseID(ctx, 404)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestVoucherRepository_UpdateProjectionKeepsDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "Olive Owner")
	org := f.org(t, "acme", owner)
	e := f.expense(t, org.ID, owner.ID, 640)
	repo := NewVoucherRepository(f.db, zap.NewNop())

	v := entity.ProjectVoucher(entity.VoucherSource{Expense: e, Organization: org, Creator: owner}, "VCH-1")
	require.NoError(t, repo.Create(ctx, v))
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateDocument(ctx, v.ID, v.StorageKey(), "", at))

	approved := 400.0
	e.ApprovedAmount = &approved
	changed := v.Refresh(entity.ProjectVoucher(entity.VoucherSource{Expense: e, Organization: org, Creator: owner}, "ignored"))
	require.True(t, changed)
	require.NoError(t, repo.UpdateProjection(ctx, v))

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, got.Amount)
	assert.Equal(t, "VCH-1", got.VoucherNumber)
	assert.Equal(t, v.StorageKey(), got.PDFPath)

	missing := *v
	missing.ID = 404
	assert.ErrorIs(t, repo.UpdateProjection(ctx, &missing), errs.ErrNotFound)
}

func TestCommentAndHistoryRepositories_ListInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "")
	org := f.org(t, "acme", owner)
	e := f.expense(t, org.ID, owner.ID, 10)

	comments := NewCommentRepository(f.db, zap.NewNop())
	require.NoError(t, comments.Create(ctx, &entity.Comment{ExpenseID: e.ID, AuthorID: owner.ID, Body: "first"}))
	require.NoError(t, comments.Create(ctx, &entity.Comment{ExpenseID: e.ID, AuthorID: owner.ID, Body: "second"}))

	listed, err := comments.ListByExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "first", listed[0].Body)
	assert.Equal(t, "second", listed[1].Body)

	history := NewHistoryRepository(f.db, zap.NewNop())
	require.NoError(t, history.Create(ctx, &entity.ExpenseHistory{
		ExpenseID: e.ID, ActorID: owner.ID, Action: "submit",
		PreviousStatus: entity.ExpenseStatusDraft, NewStatus: entity.ExpenseStatusSubmitted,
	}))
	require.NoError(t, history.Create(ctx, &entity.ExpenseHistory{
		ExpenseID: e.ID, ActorID: owner.ID, Action: "manager_approve",
		PreviousStatus: entity.ExpenseStatusSubmitted, NewStatus: entity.ExpenseStatusApproved,
	}))

	records, err := history.ListByExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "submit", records[0].Action)
	assert.Equal(t, entity.ExpenseStatusApproved, records[1].NewStatus)
}

func TestNotificationRepository_RetryLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewNotificationRepository(f.db, zap.NewNop())

	rec := &entity.NotificationRecord{
		OrganizationID: 1,
		ExpenseID:      2,
		RecipientEmail: "someone@example.com",
		Kind:           "expense_submitted",
		Subject:        "Subject",
		Body:           "Body",
		Channel:        entity.ChannelEmail,
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.Equal(t, entity.NotificationStatusPending, rec.Status)

	require.NoError(t, repo.MarkFailed(ctx, rec.ID, "smtp down"))

	retryable, err := repo.ListRetryable(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, 1, retryable[0].Attempts)
	assert.Equal(t, "smtp down", retryable[0].LastError)

	retryable, err = repo.ListRetryable(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)

	require.NoError(t, repo.MarkSent(ctx, rec.ID, time.Now()))
	retryable, err = repo.ListRetryable(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)

	assert.ErrorIs(t, repo.MarkSent(ctx, 999, time.Now()), errs.ErrNotFound)
}
