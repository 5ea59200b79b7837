package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
	"github.com/pribylovaa/snapfood/internal/http/handlers"
	"github.com/pribylovaa/snapfood/internal/http/middleware"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	BasePath       string        // например, "/api/v1"; пустой — роуты на корне.
	Origins        []string      // разрешённые CORS origin'ы.
	RequestTimeout time.Duration // дедлайн обычного запроса.
	AnalyzeTimeout time.Duration // дедлайн /food/analyze (AI + запас).
	// Ready проверяет готовность зависимостей для /healthz; nil — всегда готов.
	Ready func(ctx context.Context) error
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, tokens middleware.TokenVerifier, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // X-Request-Id до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте
		middleware.Metrics(),            // счётчики по шаблону маршрута
		middleware.Recover(),            // паника -> 500, запись "http" всё равно пишется
		middleware.CORS(opts.Origins),
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrNotFound)
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrMethodNotAllowed)
	})

	// Операционные эндпойнты вне BasePath.
	root.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/healthz", healthz(opts.Ready))
	root.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	registerRoutes(api, h, tokens, opts)

	if opts.BasePath != "" && opts.BasePath != "/" {
		root.Mount(opts.BasePath, api)
		return root
	}

	root.Mount("/", api)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, tokens middleware.TokenVerifier, opts Options) {
	authn := middleware.Authenticate(tokens)
	userOnly := middleware.Authorize(models.RoleUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		// auth
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)
		r.With(authn).Get("/auth/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(authn, userOnly)

			// dashboard
			r.Get("/dashboard/summary", h.DashboardSummary)
			r.Get("/dashboard/recent-scans", h.DashboardRecentScans)
			r.Get("/dashboard/weekly-trend", h.DashboardWeeklyTrend)
			r.Get("/dashboard/nutrition-breakdown", h.DashboardNutritionBreakdown)
			r.Get("/dashboard/health-risk", h.DashboardHealthRisk)

			// food
			r.Get("/food/history", h.FoodHistory)
		})
	})

	// Анализ ждёт AI-сервис дольше обычного дедлайна.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.AnalyzeTimeout), authn, userOnly)
		r.Post("/food/analyze", h.AnalyzeFood)
	})
}

func healthz(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := ready(ctx); err != nil {
				log.From(r.Context()).Warn("not_ready", slog.String("err", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}
