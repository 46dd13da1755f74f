package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

func TestLocalFileStorage_SaveOverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "vouchers/1/7.pdf", []byte("first")))
	require.NoError(t, s.Save(ctx, "vouchers/1/7.pdf", []byte("second")))

	content, err := s.Read(ctx, "vouchers/1/7.pdf")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
	assert.True(t, s.Exists(ctx, "vouchers/1/7.pdf"))

	entries, err := os.ReadDir(filepath.Join(dir, "vouchers", "1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalFileStorage_MissingAndDelete(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	_, err := s.Read(ctx, "vouchers/1/404.pdf")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.False(t, s.Exists(ctx, "vouchers/1/404.pdf"))
	assert.NoError(t, s.Delete(ctx, "vouchers/1/404.pdf"))

	require.NoError(t, s.Save(ctx, "a.pdf", []byte("x")))
	require.NoError(t, s.Delete(ctx, "a.pdf"))
	assert.False(t, s.Exists(ctx, "a.pdf"))
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, p := range []string{"../outside.pdf", "vouchers/../../etc/passwd", "", "."} {
		assert.ErrorIs(t, s.Save(ctx, p, []byte("x")), errs.ErrValidation, p)
		_, err := s.Read(ctx, p)
		assert.ErrorIs(t, err, errs.ErrValidation, p)
	}
}

func tokenOf(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestJWTURLSigner_RoundTrip(t *testing.T) {
	signer := NewJWTURLSigner("test-secret", "https://expenses.example.com/files/", "expense-reimbursement")

	link, err := signer.SignedURL("vouchers/1/7.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://expenses.example.com/files/vouchers/1/7.pdf?token="), link)

	path, err := signer.Verify(tokenOf(t, link))
	require.NoError(t, err)
	assert.Equal(t, "vouchers/1/7.pdf", path)
}

func TestJWTURLSigner_Rejects(t *testing.T) {
	signer := NewJWTURLSigner("test-secret", "/files", "expense-reimbursement")
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }

	link, err := signer.SignedURL("vouchers/1/7.pdf", time.Minute)
	require.NoError(t, err)
	token := tokenOf(t, link)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	signer.now = func() time.Time { return issued }
	other := NewJWTURLSigner("other-secret", "/files", "expense-reimbursement")
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = signer.Verify("not-a-token")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = signer.SignedURL("", time.Minute)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
