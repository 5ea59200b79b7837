package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
	"github.com/pribylovaa/snapfood/internal/service"
)

// TokenVerifier проверяет access-токен и возвращает его владельца.
type TokenVerifier interface {
	ParseAccessToken(token string) (*models.Principal, error)
}

type principalKey struct{}

// WithPrincipal кладёт проверенную личность в контекст.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom возвращает личность запроса, положенную Authenticate.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok && p != nil
}

// Authenticate требует заголовок Authorization: Bearer <access-token>.
// Отсутствующий, кривой или непроверяемый токен — 401 unauthenticated;
// причина пишется только в лог.
func Authenticate(tokens TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteError(w, r, service.ErrUnauthenticated)
				return
			}

			p, err := tokens.ParseAccessToken(raw)
			if err != nil {
				log.From(r.Context()).Debug("access_token_rejected",
					slog.String("op", "middleware.Authenticate"),
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, service.ErrUnauthenticated)
				return
			}

			ctx := annotate(WithPrincipal(r.Context(), p), slog.String("user_id", p.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize пропускает только перечисленные роли.
// Роли не наследуются: admin не получает доступ к маршрутам role=user.
func Authorize(roles ...models.Role) Middleware {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, service.ErrUnauthenticated)
				return
			}

			if _, ok := allowed[p.Role]; !ok {
				apierrors.WriteError(w, r, apierrors.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "

	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
