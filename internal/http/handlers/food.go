package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
	"github.com/pribylovaa/snapfood/internal/service"
)

// AnalyzeFood — POST /food/analyze {image, healthCondition}.
func (h *Handlers) AnalyzeFood(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in analyzeRequest
	if err := h.bind(w, r, h.maxAnalyze, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Analyze(r.Context(), p.UserID, in.Image, in.HealthCondition)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scanFrom(res.Scan, res.RiskScore))
}

// FoodHistory — GET /food/history?limit=N. Только сканы вызывающего пользователя.
func (h *Handlers) FoodHistory(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			apierrors.WriteError(w, r, &service.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
	}

	scans, err := h.svc.History(r.Context(), p.UserID, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := historyResponse{Result: make([]scanResponse, 0, len(scans))}
	for i := range scans {
		out.Result = append(out.Result, scanFrom(&scans[i], nil))
	}

	writeJSON(w, http.StatusOK, out)
}
