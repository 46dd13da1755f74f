package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/container"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

type testAPI struct {
	t      *testing.T
	c      *container.Container
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()

	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "expenses.db")
	cfg.Storage.BaseDir = filepath.Join(dir, "files")
	cfg.Storage.FilesBaseURL = "http://expenses.test/files"
	cfg.Auth.JWTSecret = "http-test-secret"
	cfg.Auth.Issuer = "expenses-test"

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	server := NewServer(DefaultServerConfig(), DependenciesFrom(c), container.NewLoggerAdapter(zap.NewNop()))
	return &testAPI{t: t, c: c, router: server.Router()}
}

// user is a caller holding a valid bearer token
type user struct {
	api   *testAPI
	id    *entity.Identity
	token string
}

func (a *testAPI) user(id, name string) *user {
	ident := &entity.Identity{ID: id, Email: id + "@example.com", Name: name}
	token, err := a.c.Identity().IssueToken(ident, time.Hour)
	require.NoError(a.t, err)
	return &user{api: a, id: ident, token: token}
}

func (a *testAPI) raw(method, target, bearer string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (u *user) call(method, path string, body interface{}) *httptest.ResponseRecorder {
	return u.api.raw(method, "/api/v1"+path, u.token, body)
}

// expect asserts the status code and decodes the envelope's data into out
func (u *user) expect(status int, method, path string, body, out interface{}) {
	u.api.t.Helper()
	rec := u.call(method, path, body)
	require.Equal(u.api.t, status, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out == nil {
		return
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(u.api.t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(u.api.t, json.Unmarshal(env.Data, out))
}

type expenseView struct {
	Expense struct {
		ID             int64    `json:"id"`
		Status         string   `json:"status"`
		ApprovedAmount *float64 `json:"approved_amount"`
	} `json:"expense"`
	PolicyWarning    *struct{ Message string } `json:"policy_warning"`
	AvailableActions []string                  `json:"available_actions"`
	Voucher          *struct {
		ID int64 `json:"id"`
	} `json:"voucher"`
}

// org sets up acme with an owner plus one manager, finance and member, joined through invite links
type org struct {
	owner, manager, finance, member *user
}

func (a *testAPI) acme() *org {
	o := &org{
		owner:   a.user("owner-1", "Olive Owner"),
		manager: a.user("manager-1", "Max Manager"),
		finance: a.user("finance-1", "Fin Ance"),
		member:  a.user("member-1", "Mia Member"),
	}
	o.owner.expect(http.StatusCreated, http.MethodPost, "/orgs", obj{"name": "Acme Corp", "slug": "acme"}, nil)

	for _, pair := range []struct {
		u    *user
		role string
	}{{o.manager, "manager"}, {o.finance, "finance"}, {o.member, "member"}} {
		var link entity.InviteLink
		o.owner.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/invite-links", obj{"role": pair.role}, &link)
		pair.u.expect(http.StatusOK, http.MethodPost, "/invite-links/"+link.ID+"/redeem", nil, nil)
	}
	return o
}

type obj = map[string]interface{}

func TestServer_HealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.raw(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":{"healthy":true}`)

	rec = api.raw(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestServer_Authentication(t *testing.T) {
	api := newTestAPI(t)

	rec := api.raw(http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = api.raw(http.MethodGet, "/api/v1/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	u := api.user("someone", "Some One")
	var me MeResponse
	u.expect(http.StatusOK, http.MethodGet, "/me", nil, &me)
	assert.Equal(t, "someone@example.com", me.User.Email)
	assert.Empty(t, me.Organizations)

	// the profile cache is refreshed from the token
	cached, err := api.c.Repositories().User.GetByID(context.Background(), "someone")
	require.NoError(t, err)
	assert.Equal(t, "Some One", cached.FullName)
}

func TestServer_OrganizationAccess(t *testing.T) {
	api := newTestAPI(t)
	o := api.acme()
	stranger := api.user("stranger", "Stranger")

	var resp OrganizationResponse
	o.manager.expect(http.StatusOK, http.MethodGet, "/orgs/acme", nil, &resp)
	assert.Equal(t, entity.RoleManager, resp.Role)
	assert.Equal(t, "Acme Corp", resp.Name)

	stranger.expect(http.StatusForbidden, http.MethodGet, "/orgs/acme", nil, nil)
	o.owner.expect(http.StatusNotFound, http.MethodGet, "/orgs/nowhere", nil, nil)
	o.owner.expect(http.StatusConflict, http.MethodPost, "/orgs", obj{"name": "Acme", "slug": "acme"}, nil)
	o.owner.expect(http.StatusUnprocessableEntity, http.MethodPost, "/orgs", obj{}, nil)

	var members []entity.Member
	o.member.expect(http.StatusOK, http.MethodGet, "/orgs/acme/members", nil, &members)
	assert.Len(t, members, 4)

	o.manager.expect(http.StatusForbidden, http.MethodPatch, "/orgs/acme", obj{"name": "Hijacked"}, nil)
	o.owner.expect(http.StatusOK, http.MethodPatch, "/orgs/acme", obj{"name": "Acme Holdings"}, &resp)
	assert.Equal(t, "Acme Holdings", resp.Name)

	o.owner.expect(http.StatusOK, http.MethodPatch, "/orgs/acme/members/member-1/role", obj{"role": "admin"}, nil)
	// an admin may never hand out owner
	o.member.expect(http.StatusForbidden, http.MethodPatch, "/orgs/acme/members/manager-1/role", obj{"role": "owner"}, nil)
	o.owner.expect(http.StatusUnprocessableEntity, http.MethodPatch, "/orgs/acme/members/manager-1/role", obj{"role": "emperor"}, nil)

	var policies []entity.Policy
	o.owner.expect(http.StatusOK, http.MethodPut, "/orgs/acme/policies", obj{"expense_type": "Meals", "upper_limit": 1000}, nil)
	o.finance.expect(http.StatusOK, http.MethodGet, "/orgs/acme/policies", nil, &policies)
	for _, p := range policies {
		if p.ExpenseType == "Meals" {
			require.NotNil(t, p.UpperLimit)
			assert.Equal(t, 1000.0, *p.UpperLimit)
		}
	}
	o.finance.expect(http.StatusForbidden, http.MethodPut, "/orgs/acme/policies", obj{"expense_type": "Meals", "upper_limit": 10}, nil)
}

func TestServer_ExpenseLifecycle(t *testing.T) {
	api := newTestAPI(t)
	o := api.acme()

	var created expenseView
	o.member.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/expenses", obj{
		"amount":       950,
		"expense_type": "Meals",
		"incurred_on":  "2026-04-02",
		"description":  "Client lunch",
		"approver_id":  "manager-1",
		"submit":       true,
	}, &created)
	id := created.Expense.ID
	base := fmt.Sprintf("/orgs/acme/expenses/%d", id)
	assert.Equal(t, entity.ExpenseStatusSubmitted, created.Expense.Status)
	require.NotNil(t, created.PolicyWarning)

	o.member.expect(http.StatusUnprocessableEntity, http.MethodPost, "/orgs/acme/expenses", obj{"amount": 10, "incurred_on": "02/04/2026"}, nil)
	o.member.expect(http.StatusNotFound, http.MethodGet, "/orgs/acme/expenses/abc", nil, nil)
	o.member.expect(http.StatusNotFound, http.MethodGet, "/orgs/acme/expenses/999999", nil, nil)

	// the creator cannot decide their own request
	o.member.expect(http.StatusForbidden, http.MethodPost, base+"/transitions", obj{"action": "manager_approve"}, nil)
	o.manager.expect(http.StatusUnprocessableEntity, http.MethodPost, base+"/transitions", obj{"action": "manager_reject", "reason": "  "}, nil)
	o.finance.expect(http.StatusConflict, http.MethodPost, base+"/transitions", obj{"action": "finance_approve"}, nil)
	o.manager.expect(http.StatusUnprocessableEntity, http.MethodPost, base+"/transitions", obj{}, nil)

	var queue []entity.Expense
	o.manager.expect(http.StatusOK, http.MethodGet, "/orgs/acme/expenses?queue=to_review", nil, &queue)
	require.Len(t, queue, 1)

	var tr TransitionResponse
	o.manager.expect(http.StatusOK, http.MethodPost, base+"/transitions", obj{"action": "manager_approve", "approved_amount": 800}, &tr)
	assert.Equal(t, entity.ExpenseStatusApproved, tr.Expense.Status)
	assert.True(t, tr.CustomAmount)

	o.finance.expect(http.StatusOK, http.MethodPost, base+"/transitions", obj{"action": "finance_approve"}, &tr)
	assert.Equal(t, entity.ExpenseStatusFinanceApproved, tr.Expense.Status)

	// the voucher is created in the background once finance approves
	var view expenseView
	require.Eventually(t, func() bool {
		o.finance.expect(http.StatusOK, http.MethodGet, base, nil, &view)
		return view.Voucher != nil
	}, 5*time.Second, 50*time.Millisecond)

	var voucher entity.Voucher
	o.finance.expect(http.StatusCreated, http.MethodPost, base+"/voucher", nil, &voucher)
	assert.Equal(t, view.Voucher.ID, voucher.ID, "creating twice returns the same voucher")
	assert.Equal(t, 800.0, voucher.Amount)

	var doc struct {
		Path      string `json:"path"`
		SignedURL string `json:"signed_url"`
	}
	o.finance.expect(http.StatusOK, http.MethodPost, fmt.Sprintf("/orgs/acme/vouchers/%d/pdf", voucher.ID), nil, &doc)
	require.NotEmpty(t, doc.SignedURL)
	o.member.expect(http.StatusForbidden, http.MethodPost, fmt.Sprintf("/orgs/acme/vouchers/%d/pdf", voucher.ID), nil, nil)

	link, err := url.Parse(doc.SignedURL)
	require.NoError(t, err)
	rec := api.raw(http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	// a token only opens the object it names
	other := strings.Replace(link.RequestURI(), doc.Path, "vouchers/other.pdf", 1)
	assert.Equal(t, http.StatusForbidden, api.raw(http.MethodGet, other, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.raw(http.MethodGet, "/files/"+doc.Path+"?token=forged", "", nil).Code)

	rec = o.finance.call(http.MethodGet, "/orgs/acme/exports/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Rows"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payments-acme-")
	o.manager.expect(http.StatusForbidden, http.MethodGet, "/orgs/acme/exports/payments", nil, nil)

	o.finance.expect(http.StatusUnprocessableEntity, http.MethodPost, base+"/transitions", obj{"action": "mark_not_paid"}, nil)
	o.finance.expect(http.StatusOK, http.MethodPost, base+"/transitions", obj{"action": "mark_not_paid", "reason": "bank details invalid"}, &tr)
	assert.Equal(t, entity.ExpenseStatusPaymentNotProcessed, tr.Expense.Status)
	o.finance.expect(http.StatusConflict, http.MethodPost, base+"/transitions", obj{"action": "mark_paid"}, nil)

	var history []entity.ExpenseHistory
	o.member.expect(http.StatusOK, http.MethodGet, base+"/history", nil, &history)
	assert.Len(t, history, 4)
}

func TestServer_Comments(t *testing.T) {
	api := newTestAPI(t)
	o := api.acme()

	var created expenseView
	o.member.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/expenses", obj{
		"amount": 120, "expense_type": "Internet", "incurred_on": "2026-04-01", "approver_id": "manager-1",
	}, &created)
	base := fmt.Sprintf("/orgs/acme/expenses/%d", created.Expense.ID)
	assert.Equal(t, []string{"submit"}, created.AvailableActions)

	o.manager.expect(http.StatusCreated, http.MethodPost, base+"/comments", obj{"body": "Please attach the invoice"}, nil)
	o.member.expect(http.StatusCreated, http.MethodPost, base+"/comments", obj{"body": "Attached"}, nil)
	o.member.expect(http.StatusUnprocessableEntity, http.MethodPost, base+"/comments", obj{"body": ""}, nil)
	o.finance.expect(http.StatusOK, http.MethodGet, base+"/comments", nil, nil)

	var comments []entity.Comment
	o.member.expect(http.StatusOK, http.MethodGet, base+"/comments", nil, &comments)
	require.Len(t, comments, 2)
	assert.Equal(t, "Please attach the invoice", comments[0].Body)
}

func TestServer_Invites(t *testing.T) {
	api := newTestAPI(t)
	o := api.acme()
	guest := api.user("guest", "Guest")
	late := api.user("late", "Late Comer")

	var invite entity.Invite
	o.owner.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/invites", obj{"email": "GUEST@example.com", "role": "finance"}, &invite)
	assert.Equal(t, "guest@example.com", invite.Email)
	o.owner.expect(http.StatusUnprocessableEntity, http.MethodPost, "/orgs/acme/invites", obj{"email": "nope", "role": "finance"}, nil)
	o.manager.expect(http.StatusForbidden, http.MethodPost, "/orgs/acme/invites", obj{"email": "x@example.com", "role": "member"}, nil)

	late.expect(http.StatusForbidden, http.MethodPost, "/invites/"+invite.Token+"/accept", nil, nil)
	guest.expect(http.StatusOK, http.MethodPost, "/invites/"+invite.Token+"/accept", nil, nil)
	guest.expect(http.StatusConflict, http.MethodPost, "/invites/"+invite.Token+"/accept", nil, nil)

	var link entity.InviteLink
	o.owner.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/invite-links", obj{"role": "member", "max_uses": 1}, &link)
	third := api.user("third", "Third")
	third.expect(http.StatusOK, http.MethodPost, "/invite-links/"+link.ID+"/redeem", nil, nil)
	late.expect(http.StatusTooManyRequests, http.MethodPost, "/invite-links/"+link.ID+"/redeem", nil, nil)

	var links []entity.InviteLink
	o.owner.expect(http.StatusOK, http.MethodGet, "/orgs/acme/invite-links", nil, &links)
	assert.NotEmpty(t, links)

	o.owner.expect(http.StatusCreated, http.MethodPost, "/orgs/acme/invite-links", obj{"role": "member"}, &link)
	rec := o.owner.call(http.MethodDelete, "/orgs/acme/invite-links/"+link.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	late.expect(http.StatusForbidden, http.MethodPost, "/invite-links/"+link.ID+"/redeem", nil, nil)
	late.expect(http.StatusNotFound, http.MethodPost, "/invite-links/missing/redeem", nil, nil)
}
