package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/snapfood/internal/pkg/log"
)

// Logging кладёт в контекст request-scoped логгер (с request_id) и пишет
// одну запись "http" на каждый завершённый запрос.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			// Ячейка нужна, чтобы атрибуты, добавленные глубже (user_id), попали в итоговую запись.
			holder := &loggerHolder{l: reqLogger}
			r = r.WithContext(log.Into(withHolder(r.Context(), holder), reqLogger))

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			holder.l.LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.code()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			)
		})
	}
}

type loggerHolder struct {
	l *slog.Logger
}

type holderKey struct{}

func withHolder(ctx context.Context, h *loggerHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// annotate дополняет request-scoped логгер атрибутами: и для последующих
// обработчиков, и для итоговой записи "http".
func annotate(ctx context.Context, args ...any) context.Context {
	if h, ok := ctx.Value(holderKey{}).(*loggerHolder); ok {
		h.l = h.l.With(args...)
	}

	return log.With(ctx, args...)
}
