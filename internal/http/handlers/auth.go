package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
	"github.com/pribylovaa/snapfood/internal/metrics"
	"github.com/pribylovaa/snapfood/internal/service"
)

// Register — POST /auth/register. 201 + refresh-cookie.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := h.bind(w, r, h.maxBodyBytes, &in); err != nil {
		metrics.AuthEvent("register", err)
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), in.Name, in.Email, in.Password)
	metrics.AuthEvent("register", err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusCreated, authResponse{
		Success:     true,
		Message:     "User registered successfully",
		User:        userFrom(res.User),
		AccessToken: res.Tokens.AccessToken,
	})
}

// Login — POST /auth/login. 201 + refresh-cookie; прочие сессии пользователя остаются живыми.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := h.bind(w, r, h.maxBodyBytes, &in); err != nil {
		metrics.AuthEvent("login", err)
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in.Email, in.Password)
	metrics.AuthEvent("login", err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusCreated, authResponse{
		Success:     true,
		Message:     "Login successful",
		User:        userFrom(res.User),
		AccessToken: res.Tokens.AccessToken,
	})
}

// Refresh — POST /auth/refresh. Токен берётся только из cookie, тело игнорируется.
// Отвергнутый токен стирает cookie у клиента.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(r.Context(), refreshFromCookie(r))
	metrics.AuthEvent("refresh", err)
	if err != nil {
		if rejected(err) {
			h.clearRefreshCookie(w)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: res.Tokens.AccessToken,
		User:        userFrom(res.User),
	})
}

// Logout — POST /auth/logout. Идемпотентен; cookie очищается всегда.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), refreshFromCookie(r))
	metrics.AuthEvent("logout", err)

	h.clearRefreshCookie(w)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, logoutResponse{Success: true, Message: "Logged out successfully"})
}

// Me — GET /auth/me. Профиль владельца access-токена.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Me(r.Context(), p.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: userFrom(user)})
}

// rejected — refresh-токен больше никогда не будет принят.
func rejected(err error) bool {
	return errors.Is(err, service.ErrNoRefreshToken) ||
		errors.Is(err, service.ErrInvalidToken) ||
		errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenRevoked)
}
