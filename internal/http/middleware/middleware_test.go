package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
	"github.com/pribylovaa/snapfood/internal/service"
)

// capture — тестовый slog.Handler: общий для всех производных логгеров
// список записей, attrs из With накапливаются по цепочке.
type capture struct {
	base []slog.Attr
	recs *[]record
}

type record struct {
	msg   string
	attrs map[string]any
}

func newCapture() *capture {
	return &capture{recs: &[]record{}}
}

func (h *capture) Enabled(context.Context, slog.Level) bool { return true }

func (h *capture) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	*h.recs = append(*h.recs, record{msg: r.Message, attrs: out})
	return nil
}

func (h *capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := append(append([]slog.Attr{}, h.base...), attrs...)
	return &capture{base: base, recs: h.recs}
}

func (h *capture) WithGroup(string) slog.Handler { return h }

func (h *capture) all() []record { return *h.recs }

func (h *capture) last() record {
	recs := *h.recs
	if len(recs) == 0 {
		return record{}
	}
	return recs[len(recs)-1]
}

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func ok200() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// fakeVerifier — TokenVerifier с таблицей токенов.
type fakeVerifier map[string]*models.Principal

func (f fakeVerifier) ParseAccessToken(token string) (*models.Principal, error) {
	if p, ok := f[token]; ok {
		return p, nil
	}
	if token == "expired" {
		return nil, service.ErrTokenExpired
	}
	return nil, service.ErrInvalidToken
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m1-end")
		})
	}
	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m2-end")
		})
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, m1, m2).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenHeader, seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(HeaderRequestID)
		seenCtx = RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get(HeaderRequestID)
	require.Len(t, respID, 32)
	require.Equal(t, respID, seenHeader)
	require.Equal(t, respID, seenCtx)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = RequestIDFrom(r.Context())
	})

	req := makeReq("/rid2")
	req.Header.Set(HeaderRequestID, given)
	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get(HeaderRequestID))
	require.Equal(t, given, seenCtx)
	require.Empty(t, RequestIDFrom(context.Background()))
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var left time.Duration
	var has bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var dl time.Time
		dl, has = r.Context().Deadline()
		left = time.Until(dl)
	})

	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))

	require.True(t, has)
	require.Greater(t, left, time.Duration(0))
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	Chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_NonPositive_NoOp(t *testing.T) {
	var has bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	})

	Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout3"))
	require.False(t, has)
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom: secret detail")
	})

	rr := httptest.NewRecorder()
	Chain(panicHandler, Recover()).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NotContains(t, rr.Body.String(), "secret detail")

	env := decodeErr(t, rr)
	require.Equal(t, "internal", env.Error.Code)
	require.NotEmpty(t, env.Error.Message)
}

func TestLogging_WritesRecord_WithStatusBytesRequestIDAndUser(t *testing.T) {
	h := newCapture()
	logger := slog.New(h)

	const rid = "rid-456"
	uid := uuid.New()
	verifier := fakeVerifier{"good": {UserID: uid, Role: models.RoleUser}}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Без WriteHeader статус становится 200 после Write.
		_, _ = w.Write([]byte("0123456789"))
	})

	handler := Chain(final, RequestID(), Logging(logger), Authenticate(verifier))

	req := makeReq("/log")
	req.Header.Set(HeaderRequestID, rid)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	rec := h.last()
	require.Equal(t, "http", rec.msg)
	require.Equal(t, http.MethodGet, rec.attrs["method"])
	require.Equal(t, "/log", rec.attrs["path"])
	require.EqualValues(t, http.StatusOK, rec.attrs["status"])
	require.EqualValues(t, 10, rec.attrs["bytes"])
	require.Equal(t, rid, rec.attrs["request_id"])
	require.Equal(t, uid.String(), rec.attrs["user_id"])
	require.Contains(t, rec.attrs, "dur")
}

func TestLogging_PutsLoggerIntoContext(t *testing.T) {
	h := newCapture()
	logger := slog.New(h)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.From(r.Context()).Info("inner")
	})

	req := makeReq("/inner")
	req.Header.Set(HeaderRequestID, "rid-1")
	Chain(final, Logging(logger)).ServeHTTP(httptest.NewRecorder(), req)

	recs := h.all()
	require.Len(t, recs, 2)
	require.Equal(t, "inner", recs[0].msg)
	require.Equal(t, "rid-1", recs[0].attrs["request_id"])
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())
	require.Equal(t, http.StatusOK, sw.code())

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 4, sw.count)
}

func TestAuthenticate(t *testing.T) {
	uid := uuid.New()
	verifier := fakeVerifier{"good": {UserID: uid, Role: models.RoleUser}}

	tcs := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
		{"expired token", "Bearer expired", http.StatusUnauthorized},
		{"ok", "Bearer good", http.StatusOK},
		{"ok lowercase scheme", "bearer good", http.StatusOK},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var got *models.Principal
			final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = PrincipalFrom(r.Context())
			})

			req := makeReq("/secure")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			Chain(final, Authenticate(verifier)).ServeHTTP(rr, req)

			require.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusOK {
				require.NotNil(t, got)
				require.Equal(t, uid, got.UserID)
				return
			}
			require.Nil(t, got)
			require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
		})
	}
}

func TestAuthorize(t *testing.T) {
	user := &models.Principal{UserID: uuid.New(), Role: models.RoleUser}
	admin := &models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}

	tcs := []struct {
		name     string
		p        *models.Principal
		want     int
		wantCode string
	}{
		{"no principal", nil, http.StatusUnauthorized, "unauthenticated"},
		{"user allowed", user, http.StatusOK, ""},
		{"admin not implied", admin, http.StatusForbidden, "forbidden"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := makeReq("/dash")
			if tc.p != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tc.p))
			}
			rr := httptest.NewRecorder()
			Chain(ok200(), Authorize(models.RoleUser)).ServeHTTP(rr, req)

			require.Equal(t, tc.want, rr.Code)
			if tc.wantCode != "" {
				require.Equal(t, tc.wantCode, decodeErr(t, rr).Error.Code)
			}
		})
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, makeReq("/items/42"))
	require.Equal(t, http.StatusAccepted, rr.Code)

	routes := requestRoutes(t)
	require.Contains(t, routes, "/items/{id}")
	require.NotContains(t, routes, "/items/42")
}

// requestRoutes собирает значения метки route у snapfood_http_requests_total.
func requestRoutes(t *testing.T) []string {
	t.Helper()

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var routes []string
	for _, mf := range mfs {
		if mf.GetName() != "snapfood_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					routes = append(routes, lp.GetValue())
				}
			}
		}
	}
	return routes
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	h := Chain(ok200(), CORS([]string{"http://localhost:5173"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOriginNotAllowed(t *testing.T) {
	h := Chain(ok200(), CORS([]string{"http://localhost:5173"}))

	req := makeReq("/api/v1/dashboard/summary")
	req.Header.Set("Origin", "http://evil.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
