// errors стандартизирует ответы об ошибках HTTP-слоя SnapFood.
// На вход принимает доменную ошибку сервиса, на выход даёт HTTP-статус
// и краткое безопасное сообщение без утечки деталей.
//
// Тело ответа всегда {"error":{"code","message","request_id"}}.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/snapfood/internal/pkg/log"
	"github.com/pribylovaa/snapfood/internal/service"
)

// Нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrForbidden — роль не допускает операцию. HTTP 403.
	ErrForbidden = stderrors.New("forbidden")
	// ErrNotFound — неизвестный маршрут или ресурс. HTTP 404.
	ErrNotFound = stderrors.New("not found")
	// ErrMethodNotAllowed — метод не поддерживается маршрутом. HTTP 405.
	ErrMethodNotAllowed = stderrors.New("method not allowed")
	// ErrPayloadTooLarge — тело запроса превышает лимит. HTTP 413.
	ErrPayloadTooLarge = stderrors.New("payload too large")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код, Message — безопасное описание.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и тело ответа.
// err == nil — программная ошибка вызова: 500/internal, чтобы не маскировать баг.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError пишет статус и тело, добавляет request_id из X-Request-Id.
// 5xx логируются с исходной ошибкой, клиенту уходит только общее сообщение.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status >= http.StatusInternalServerError {
		msg := "<nil>"
		if err != nil {
			msg = err.Error()
		}
		log.From(r.Context()).Error("request_failed",
			slog.Int("status", status),
			slog.String("code", resp.Error.Code),
			slog.String("err", msg),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// classify — таблица маппинга доменных ошибок:
//   - ErrValidation -> 400 validation_error (сообщение поля безопасно и возвращается клиенту)
//   - ErrEmailTaken -> 400 conflict
//   - ErrInvalidCredentials -> 401 invalid_credentials
//   - ErrNoRefreshToken, ErrUnauthenticated -> 401 unauthenticated
//   - ErrForbidden -> 403 forbidden
//   - ErrInvalidToken, ErrTokenExpired -> 403 invalid_token
//   - ErrTokenRevoked -> 403 token_revoked
//   - ErrUpstream -> 500 upstream_error
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//   - прочее -> 500/internal
func classify(err error) (int, string, string) {
	var ve *service.ValidationError

	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case stderrors.As(err, &ve):
		return http.StatusBadRequest, "validation_error", ve.Error()
	case stderrors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error", "invalid request"
	case stderrors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "conflict", "user with this email already exists"
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case stderrors.Is(err, service.ErrNoRefreshToken):
		return http.StatusUnauthorized, "unauthenticated", "refresh token is missing"
	case stderrors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	case stderrors.Is(err, service.ErrTokenRevoked):
		return http.StatusForbidden, "token_revoked", "token revoked"
	case stderrors.Is(err, service.ErrInvalidToken), stderrors.Is(err, service.ErrTokenExpired):
		return http.StatusForbidden, "invalid_token", "invalid or expired token"
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"
	case stderrors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large", "payload too large"
	case stderrors.Is(err, service.ErrUpstream):
		return http.StatusInternalServerError, "upstream_error", "food analysis service is unavailable"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
