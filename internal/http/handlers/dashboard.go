package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
)

// Все проекции дашборда строятся по user id из access-токена.

func (h *Handlers) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	serveProjection(w, r, h.svc.Summary)
}

func (h *Handlers) DashboardRecentScans(w http.ResponseWriter, r *http.Request) {
	serveProjection(w, r, h.svc.RecentScans)
}

func (h *Handlers) DashboardWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	serveProjection(w, r, h.svc.WeeklyTrend)
}

func (h *Handlers) DashboardNutritionBreakdown(w http.ResponseWriter, r *http.Request) {
	serveProjection(w, r, h.svc.NutritionBreakdown)
}

func (h *Handlers) DashboardHealthRisk(w http.ResponseWriter, r *http.Request) {
	serveProjection(w, r, h.svc.HealthRisk)
}

func serveProjection[T any](w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (T, error)) {
	p, err := principal(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := fn(r.Context(), p.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
