package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/handler"
	"github.com/dangerclosesec/portal/internal/mocks"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/dangerclosesec/portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testServer struct {
	handler http.Handler
	tokens  *auth.TokenManager
	hasher  *auth.PasswordHasher
	users   *mocks.MockUserRepositoryIface
	orgs    *mocks.MockOrganizationRepositoryIface
	reports *mocks.MockReportRepositoryIface
}

func newTestServer(t *testing.T, ping error) *testServer {
	ctrl := gomock.NewController(t)
	ts := &testServer{
		tokens:  auth.NewTokenManager("test_secret", 24*time.Hour),
		hasher:  auth.NewPasswordHasher(),
		users:   mocks.NewMockUserRepositoryIface(ctrl),
		orgs:    mocks.NewMockOrganizationRepositoryIface(ctrl),
		reports: mocks.NewMockReportRepositoryIface(ctrl),
	}

	ts.handler = handler.NewRouter(handler.RouterConfig{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		TokenManager:   ts.tokens,
		AllowedOrigins: []string{"*"},
		Auth:           handler.NewAuthHandler(service.NewAuthService(ts.users, ts.hasher, ts.tokens)),
		Organizations:  handler.NewOrganizationHandler(service.NewOrganizationService(ts.orgs)),
		Users:          handler.NewUserHandler(service.NewUserService(ts.users, ts.hasher)),
		Reports:        handler.NewReportHandler(service.NewReportService(ts.reports, ts.users)),
		Health:         handler.NewHealthHandler(fakePinger{err: ping}),
	})
	return ts
}

func (ts *testServer) tokenFor(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := ts.tokens.Generate(u)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func orgID(v uint) *uint { return &v }

var (
	adminUser = &model.User{ID: 1, Name: "Admin", Username: "admin", Role: model.RoleAdmin}
	johnUser  = &model.User{ID: 12, Name: "John", Username: "john", Role: model.RoleSubmitter, OrganizationID: orgID(3)}
	sarahUser = &model.User{ID: 5, Name: "Sarah", Username: "sarah", Role: model.RoleInternalApprover, OrganizationID: orgID(3)}
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	ts = newTestServer(t, errors.New("connection refused"))
	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	hash, err := ts.hasher.Hash("admin123")
	require.NoError(t, err)
	stored := *adminUser
	stored.PasswordHash = hash

	ts.users.EXPECT().FindByUsername(gomock.Any(), "admin").Return(&stored, nil).Times(2)
	ts.users.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, domain.ErrUserNotFound)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), hash)

	wrong := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	unknown := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", decode(t, rec)["error"])

	rec = ts.do(t, http.MethodGet, "/reports", "not.a.token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid token", decode(t, rec)["error"])
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	john := ts.tokenFor(t, johnUser)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/5"},
		{http.MethodPut, "/users/5/reset-password"},
		{http.MethodDelete, "/users/5"},
		{http.MethodPost, "/organizations"},
		{http.MethodPut, "/organizations/3"},
		{http.MethodDelete, "/organizations/3"},
		{http.MethodDelete, "/reports/100"},
	} {
		rec := ts.do(t, tc.method, tc.path, john, map[string]string{})
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Insufficient permissions", decode(t, rec)["error"])
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.users.EXPECT().FindByUsername(gomock.Any(), "john").Return(johnUser, nil)
	ts.users.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	rec := ts.do(t, http.MethodPost, "/users", admin, map[string]interface{}{
		"name":            "John Again",
		"email":           "john2@example.gov",
		"username":        "john",
		"password":        "password123",
		"role":            "submitter",
		"organization_id": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", decode(t, rec)["error"])
}

func TestListUsersHidesHashes(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	withHash := *johnUser
	withHash.PasswordHash = "$argon2id$v=19$secret"
	ts.users.EXPECT().FindAll(gomock.Any()).Return([]*model.User{&withHash}, nil)

	rec := ts.do(t, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "argon2id")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestCreateOrganizationWithMissingParent(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.orgs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("failed to create organization: %w: parent", domain.ErrInvalidReference))

	rec := ts.do(t, http.MethodPost, "/organizations", admin, map[string]interface{}{
		"name":      "Ghost Department",
		"type":      "Department",
		"parent_id": 999,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMissingOrganization(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.orgs.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrOrganizationNotFound)

	rec := ts.do(t, http.MethodPut, "/organizations/42", admin, map[string]string{"name": "Nowhere", "type": "LGA"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveReport(t *testing.T) {
	ts := newTestServer(t, nil)
	sarah := ts.tokenFor(t, sarahUser)
	ts.users.EXPECT().FindByID(gomock.Any(), sarahUser.ID).Return(sarahUser, nil).AnyTimes()

	t.Run("unknown approval type", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/reports/100/approve", sarah, map[string]string{"approval_type": "final"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid approval type", decode(t, rec)["error"])
	})

	t.Run("wrong role for parent approval", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/reports/100/approve", sarah, map[string]string{"approval_type": "parent"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("internal approval", func(t *testing.T) {
		ts.reports.EXPECT().
			Transition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in repository.TransitionInput) (*repository.TransitionResult, error) {
				assert.Equal(t, model.ActionApproveInternal, in.Action)
				assert.NotEmpty(t, in.RequestID)
				return &repository.TransitionResult{
					Report: &model.Report{
						ID:                 100,
						Status:             model.StatusInternallyApproved,
						InternalApproverID: orgID(sarahUser.ID),
					},
					From:    model.StatusPendingInternal,
					Changed: true,
				}, nil
			})

		rec := ts.do(t, http.MethodPut, "/reports/100/approve", sarah, map[string]string{"approval_type": "internal"})
		require.Equal(t, http.StatusOK, rec.Code)
		report := decode(t, rec)["report"].(map[string]interface{})
		assert.Equal(t, "internally_approved", report["status"])
		assert.Equal(t, float64(sarahUser.ID), report["internal_approver_id"])
	})

	t.Run("out of order", func(t *testing.T) {
		ts.reports.EXPECT().
			Transition(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: cannot approve_internal a report in status approved", domain.ErrInvalidTransition))

		rec := ts.do(t, http.MethodPut, "/reports/100/approve", sarah, map[string]string{"approval_type": "internal"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/reports/abc/approve", sarah, map[string]string{"approval_type": "internal"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitReportWithoutOrganization(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.reports.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ErrNoOrganization)

	rec := ts.do(t, http.MethodPost, "/reports", admin, map[string]string{
		"title":    "Admin report",
		"content":  "",
		"due_date": "2025-10-25",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMissingReport(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.reports.EXPECT().Delete(gomock.Any(), uint(9)).Return(domain.ErrReportNotFound)

	rec := ts.do(t, http.MethodDelete, "/reports/9", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.tokenFor(t, adminUser)

	ts.orgs.EXPECT().FindAll(gomock.Any()).Return(nil, errors.New("pq: relation \"organizations\" does not exist"))

	rec := ts.do(t, http.MethodGet, "/organizations", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}
