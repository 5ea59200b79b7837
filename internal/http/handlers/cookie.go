package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/snapfood/internal/config"
)

// RefreshCookieName — имя HTTP-only cookie с refresh-токеном.
const RefreshCookieName = "refreshToken"

// CookieConfig — атрибуты refresh-cookie.
type CookieConfig struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieConfig собирает атрибуты cookie из настроек web и TTL refresh-токена.
// В production cookie Secure и SameSite=None (фронт на другом домене), иначе Lax.
func NewCookieConfig(web config.WebConfig, basePath string, ttl time.Duration) CookieConfig {
	c := CookieConfig{
		Path:     strings.TrimRight(basePath, "/") + "/auth",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   ttl,
	}

	if web.IsProduction() {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}

	return c
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}

	return c
}

func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func refreshFromCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}

	return c.Value
}
