package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quest-bot/internal/models"
	"quest-bot/internal/service"
	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminSecret = "admin-secret"

type fakeSessions struct {
	sessions     []models.SessionInfo
	shutdownErr  error
	shutdownCall int
}

func (f *fakeSessions) Sessions() []models.SessionInfo { return f.sessions }

func (f *fakeSessions) ShutdownAll(context.Context) error {
	f.shutdownCall++
	f.sessions = nil
	return f.shutdownErr
}

type fakeStats struct {
	stats []service.AchievementStats
	err   error
}

func (f *fakeStats) AllStats(context.Context) ([]service.AchievementStats, error) {
	return f.stats, f.err
}

type fakeBranches map[string]*models.Branch

func (f fakeBranches) Get(id string) (*models.Branch, bool) {
	b, ok := f[id]
	return b, ok
}

func newTestRouter(t *testing.T, sessions *fakeSessions, stats *fakeStats, secret string) http.Handler {
	t.Helper()
	branches := fakeBranches{
		"start": {ID: "start", Lines: []string{"Привет"}, Kind: models.BranchCommon,
			AnswerOptions: []models.AnswerOption{{Text: "Дальше", NextBranchID: "end"}}},
	}
	admin := NewAdminHandler(sessions, stats, branches, zap.NewNop())
	return NewRouter(RouterConfig{AdminSecret: secret, Admin: admin}, zap.NewNop())
}

func adminRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	token, err := sharedMiddleware.GenerateAdminJWT("tester", testAdminSecret, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeSessions{}, &fakeStats{}, "")
	w := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	router := newTestRouter(t, &fakeSessions{}, &fakeStats{}, testAdminSecret)
	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutes_DisabledWithoutSecret(t *testing.T) {
	router := newTestRouter(t, &fakeSessions{}, &fakeStats{}, "")
	w := serve(router, adminRequest(t, http.MethodGet, "/api/admin/sessions"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes_Sessions(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{sessions: []models.SessionInfo{
		{ChatID: 1, FirstName: "Аня", BranchID: "start", StartedAt: started},
	}}
	router := newTestRouter(t, sessions, &fakeStats{}, testAdminSecret)

	w := serve(router, adminRequest(t, http.MethodGet, "/api/admin/sessions"))
	require.Equal(t, http.StatusOK, w.Code)
	var resp sessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "start", resp.Sessions[0].BranchID)

	w = serve(router, adminRequest(t, http.MethodPost, "/api/admin/sessions/shutdown"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"closed":1}`, w.Body.String())
	assert.Equal(t, 1, sessions.shutdownCall)

	w = serve(router, adminRequest(t, http.MethodGet, "/api/admin/sessions"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"sessions":[]}`, w.Body.String())
}

func TestAdminRoutes_ShutdownNotificationErrorsAreNotFatal(t *testing.T) {
	sessions := &fakeSessions{
		sessions:    []models.SessionInfo{{ChatID: 1}, {ChatID: 2}},
		shutdownErr: errors.New("send failed"),
	}
	router := newTestRouter(t, sessions, &fakeStats{}, testAdminSecret)

	w := serve(router, adminRequest(t, http.MethodPost, "/api/admin/sessions/shutdown"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"closed":2}`, w.Body.String())
}

func TestAdminRoutes_Achievements(t *testing.T) {
	stats := &fakeStats{stats: []service.AchievementStats{
		{Achievement: models.Achievement{ID: "explorer", Name: "Исследователь"}, Owners: 2, Percent: 66.67},
	}}
	router := newTestRouter(t, &fakeSessions{}, stats, testAdminSecret)

	w := serve(router, adminRequest(t, http.MethodGet, "/api/admin/achievements"))
	require.Equal(t, http.StatusOK, w.Code)
	var resp []service.AchievementStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "explorer", resp[0].Achievement.ID)
	assert.Equal(t, 2, resp[0].Owners)

	stats.err = errors.New("db down")
	w = serve(router, adminRequest(t, http.MethodGet, "/api/admin/achievements"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminRoutes_Branch(t *testing.T) {
	router := newTestRouter(t, &fakeSessions{}, &fakeStats{}, testAdminSecret)

	w := serve(router, adminRequest(t, http.MethodGet, "/api/admin/branches/start"))
	require.Equal(t, http.StatusOK, w.Code)
	var branch models.Branch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &branch))
	assert.Equal(t, "start", branch.ID)
	assert.Equal(t, "end", branch.AnswerOptions[0].NextBranchID)

	w = serve(router, adminRequest(t, http.MethodGet, "/api/admin/branches/nowhere"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, ErrCodeNotFound, errResp.Code)
}
