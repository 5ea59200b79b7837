package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/internal/http/handlers"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/service"
	"github.com/pribylovaa/snapfood/mocks"
)

const basePath = "/api/v1"

// fakeVerifier — TokenVerifier с таблицей выданных токенов.
type fakeVerifier map[string]*models.Principal

func (f fakeVerifier) ParseAccessToken(token string) (*models.Principal, error) {
	if p, ok := f[token]; ok {
		return p, nil
	}
	return nil, service.ErrInvalidToken
}

type routerEnv struct {
	h       http.Handler
	svc     *mocks.MockService
	userID  uuid.UUID
	adminID uuid.UUID
}

func newRouterEnv(t *testing.T, ready func(context.Context) error) *routerEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	env := &routerEnv{svc: svc, userID: uuid.New(), adminID: uuid.New()}
	verifier := fakeVerifier{
		"user-token":  {UserID: env.userID, Role: models.RoleUser},
		"admin-token": {UserID: env.adminID, Role: models.RoleAdmin},
	}

	h := handlers.New(svc, handlers.Options{
		Cookie: handlers.NewCookieConfig(config.WebConfig{}, basePath, time.Hour),
	})

	env.h = NewRouter(h, verifier, Options{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		BasePath:       basePath,
		Origins:        []string{"http://localhost:5173"},
		RequestTimeout: time.Second,
		AnalyzeTimeout: time.Minute,
		Ready:          ready,
	})

	return env
}

func (e *routerEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	require.NotEmpty(t, body.Error.RequestID)
	return body.Error.Code
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	env := newRouterEnv(t, nil)

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/livez", "", "").Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", "").Code)

	rr := env.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "snapfood_http_requests_total")
}

func TestRouter_Healthz_NotReady(t *testing.T) {
	env := newRouterEnv(t, func(context.Context) error { return errors.New("db down") })

	require.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/healthz", "", "").Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/livez", "", "").Code)
}

func TestRouter_UnknownRoute_JSON404(t *testing.T) {
	env := newRouterEnv(t, nil)

	rr := env.do(http.MethodGet, basePath+"/nope", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", errCode(t, rr))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	env := newRouterEnv(t, nil)

	rr := env.do(http.MethodGet, basePath+"/auth/login", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, "method_not_allowed", errCode(t, rr))
}

func TestRouter_UserRoutes_RequireUserRole(t *testing.T) {
	routes := []string{
		"/dashboard/summary",
		"/dashboard/recent-scans",
		"/dashboard/weekly-trend",
		"/dashboard/nutrition-breakdown",
		"/dashboard/health-risk",
		"/food/history",
	}

	for _, route := range routes {
		t.Run(route, func(t *testing.T) {
			env := newRouterEnv(t, nil)

			rr := env.do(http.MethodGet, basePath+route, "", "")
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, "unauthenticated", errCode(t, rr))

			rr = env.do(http.MethodGet, basePath+route, "forged", "")
			require.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = env.do(http.MethodGet, basePath+route, "admin-token", "")
			require.Equal(t, http.StatusForbidden, rr.Code)
			require.Equal(t, "forbidden", errCode(t, rr))
		})
	}
}

func TestRouter_Summary_UserToken(t *testing.T) {
	env := newRouterEnv(t, nil)
	env.svc.EXPECT().Summary(gomock.Any(), env.userID).Return(&models.Summary{HealthScore: 85, CaloriesTarget: 2000, GoalsMet: "8/10"}, nil)

	rr := env.do(http.MethodGet, basePath+"/dashboard/summary", "user-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRouter_Me_AnyAuthenticatedRole(t *testing.T) {
	env := newRouterEnv(t, nil)
	env.svc.EXPECT().Me(gomock.Any(), env.adminID).Return(&models.User{ID: env.adminID, Role: models.RoleAdmin}, nil)

	rr := env.do(http.MethodGet, basePath+"/auth/me", "admin-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_Analyze_UsesLongerDeadline(t *testing.T) {
	env := newRouterEnv(t, nil)

	var left time.Duration
	env.svc.EXPECT().Analyze(gomock.Any(), env.userID, "aGVsbG8=", "").
		DoAndReturn(func(ctx context.Context, _ uuid.UUID, _, _ string) (*models.ScanResult, error) {
			dl, ok := ctx.Deadline()
			require.True(t, ok)
			left = time.Until(dl)
			return nil, service.ErrUpstream
		})

	rr := env.do(http.MethodPost, basePath+"/food/analyze", "user-token", `{"image":"aGVsbG8="}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "upstream_error", errCode(t, rr))
	require.Greater(t, left, time.Second)
}

func TestRouter_History_UsesRequestDeadline(t *testing.T) {
	env := newRouterEnv(t, nil)

	var left time.Duration
	env.svc.EXPECT().History(gomock.Any(), env.userID, 0).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID, _ int) ([]models.Scan, error) {
			dl, _ := ctx.Deadline()
			left = time.Until(dl)
			return nil, nil
		})

	rr := env.do(http.MethodGet, basePath+"/food/history", "user-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.LessOrEqual(t, left, time.Second)
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newRouterEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, basePath+"/auth/refresh", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
