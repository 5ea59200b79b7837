// service содержит бизнес-логику SnapFood:
// сессии (регистрация, вход, ротация и отзыв refresh-токенов),
// анализ фотографий еды и проекции дашборда.
//
// Service не хранит состояние запроса и безопасен для конкурентного
// использования, если безопасны переданные зависимости.
// Ошибки маппятся на HTTP в пакете internal/errors (см. комментарии ниже).
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/snapfood/internal/cache"
	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/internal/events"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
	"github.com/pribylovaa/snapfood/internal/storage"
)

var (
	// ErrValidation — некорректные входные данные. HTTP 400 validation_error.
	// Конкретное поле описывает *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrEmailTaken — email уже зарегистрирован. HTTP 400 conflict.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials — неизвестный email или неверный пароль. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated — нет валидного access-токена или пользователь исчез. HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNoRefreshToken — refresh-cookie отсутствует. HTTP 401.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrInvalidToken — неверная подпись, алгоритм, issuer или формат. HTTP 403.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — истёк срок JWT. HTTP 403.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — refresh-токен отозван, неизвестен или уже ротирован. HTTP 403.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrSigningKeyMissing — не задан секрет подписи. HTTP 500.
	ErrSigningKeyMissing = errors.New("signing key missing")

	// ErrRefreshTokenCollision — исчерпаны попытки сохранить уникальный refresh-токен. HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrUpstream — AI-сервис недоступен или вернул некорректный ответ. HTTP 500 upstream_error.
	ErrUpstream = errors.New("upstream service error")
)

//go:generate mockgen -destination=../../mocks/mock_service.go -package=mocks github.com/pribylovaa/snapfood/internal/service Analyzer,NutritionLookup

// Analyzer распознаёт блюдо на изображении.
type Analyzer interface {
	Analyze(ctx context.Context, image string, conditions []string) (*models.Analysis, error)
}

// NutritionLookup ищет нутриенты по названию блюда.
type NutritionLookup interface {
	Lookup(ctx context.Context, food string) (models.Nutrients, error)
}

// Service описывает бизнес-логику SnapFood.
type Service struct {
	storage   storage.Storage
	cfg       config.AuthConfig
	hasher    *hasher
	now       func() time.Time
	rcache    cache.RefreshCache // nil, если кэш не сконфигурирован
	publisher events.Publisher
	analyzer  Analyzer
	nutrition NutritionLookup      // nil, если USDA не сконфигурирован
	images    storage.ImageStorage // nil, если архив не сконфигурирован

	maxImageBytes    int64
	revokedRetention time.Duration
}

// Option настраивает опциональные зависимости Service.
type Option func(*Service)

func WithRefreshCache(c cache.RefreshCache) Option {
	return func(s *Service) { s.rcache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

func WithNutrition(n NutritionLookup) Option {
	return func(s *Service) { s.nutrition = n }
}

func WithImageStorage(is storage.ImageStorage) Option {
	return func(s *Service) { s.images = is }
}

// WithMaxImageBytes ограничивает размер декодированного изображения.
func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithRevokedRetention задаёт, сколько хранить отозванные токены до очистки.
func WithRevokedRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.revokedRetention = d
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	defaultMaxImageBytes    = 8 << 20
	defaultRevokedRetention = 24 * time.Hour
)

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		storage:          storage,
		cfg:              cfg,
		hasher:           newHasher(cfg.BcryptCost, cfg.HashTimeout),
		now:              func() time.Time { return time.Now().UTC() },
		publisher:        events.NopPublisher{},
		maxImageBytes:    defaultMaxImageBytes,
		revokedRetention: defaultRevokedRetention,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ping проверяет готовность хранилища (readiness).
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// publish отправляет событие; ошибка только логируется.
func (s *Service) publish(ctx context.Context, typ string, userID uuid.UUID, payload map[string]any) {
	e := events.Event{Type: typ, UserID: userID, OccurredAt: s.now(), Payload: payload}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.From(ctx).Warn("event_publish_failed",
			slog.String("type", typ),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
	}
}
