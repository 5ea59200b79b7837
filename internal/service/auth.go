package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/snapfood/internal/cache"
	"github.com/pribylovaa/snapfood/internal/events"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
	"github.com/pribylovaa/snapfood/internal/pkg/redact"
	"github.com/pribylovaa/snapfood/internal/storage"
)

const (
	maxRefreshSaveAttempts = 3
	rollbackTimeout        = 5 * time.Second
)

// Register регистрирует пользователя и открывает первую сессию.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.AuthResult, error) {
	const op = "service.auth.Register"

	name, email, err := validateRegistration(name, email, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("%s: hash: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now(),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		s.rollbackRegistration(ctx, user.ID)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)
	s.publish(ctx, events.TypeUserRegistered, user.ID, map[string]any{"email": user.Email})

	return &models.AuthResult{User: user, Tokens: tokens}, nil
}

// rollbackRegistration удаляет пользователя, для которого не удалось открыть сессию,
// чтобы повторная регистрация с тем же email не получала ErrEmailTaken.
// Удаление выполняется и после отмены запроса.
func (s *Service) rollbackRegistration(ctx context.Context, userID uuid.UUID) {
	const op = "service.auth.rollbackRegistration"

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := s.storage.DeleteUser(dctx, userID); err != nil {
		log.From(ctx).Error("register_rollback_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
	}
}

// Login выполняет вход по email и паролю.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	const op = "service.auth.Login"

	if password == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("password", "is required"))
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.hasher.CompareDummy(ctx, password); err != nil {
			return nil, fmt.Errorf("%s: compare: %w", op, err)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("%s: compare: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.TypeUserLoggedIn, user.ID, nil)

	return &models.AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh ротирует refresh-токен: старый отзывается, выдаётся новая пара.
// Из нескольких конкурентных ротаций одного токена успешна ровно одна.
// Вместе с токенами возвращается профиль владельца для восстановления сессии клиентом.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash := hashToken(refreshToken)
	now := s.now()

	ownerID, err := s.liveTokenOwner(ctx, hash, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ownerID != claims.UserID {
		lg.Warn("refresh_owner_mismatch",
			slog.String("op", op),
			slog.String("claims_user_id", claims.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := s.storage.UserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.storage.RevokeRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.cacheRevoked(ctx, hash)

	if !revoked {
		lg.Warn("refresh_reuse_detected",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AuthResult{User: user, Tokens: tokens}, nil
}

// Logout отзывает refresh-токен. Пустой, неизвестный или уже отозванный токен — не ошибка.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	if refreshToken == "" {
		return nil
	}

	hash := hashToken(refreshToken)

	if _, err := s.storage.RevokeRefreshToken(ctx, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.cacheRevoked(ctx, hash)

	return nil
}

// Me возвращает профиль текущего пользователя.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.auth.Me"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// PurgeStaleTokens удаляет истёкшие токены и давно отозванные.
func (s *Service) PurgeStaleTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "service.auth.PurgeStaleTokens"

	n, err := s.storage.DeleteStaleTokens(ctx, now, now.Add(-s.revokedRetention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// liveTokenOwner возвращает владельца действующего refresh-токена.
// Кэш избавляет от чтения строки из БД; отозванная запись в кэше сразу даёт ErrTokenRevoked.
func (s *Service) liveTokenOwner(ctx context.Context, hash string, now time.Time) (uuid.UUID, error) {
	if entry, ok := s.cacheGet(ctx, hash); ok {
		if entry.Revoked || !now.Before(entry.ExpiresAt) {
			return uuid.Nil, ErrTokenRevoked
		}

		return entry.UserID, nil
	}

	row, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return uuid.Nil, ErrTokenRevoked
		}

		return uuid.Nil, err
	}

	if row.Revoked || !now.Before(row.ExpiresAt) {
		return uuid.Nil, ErrTokenRevoked
	}

	return row.UserID, nil
}

// openSession выпускает пару токенов и сохраняет хэш refresh-токена.
func (s *Service) openSession(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.openSession"

	now := s.now()

	access, accessExp, err := s.issueAccessToken(user.ID, user.Role, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 0; attempt < maxRefreshSaveAttempts; attempt++ {
		jti := uuid.New()

		refresh, refreshExp, err := s.issueRefreshToken(user.ID, user.Role, jti, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		row := &models.RefreshToken{
			ID:        jti,
			TokenHash: hashToken(refresh),
			UserID:    user.ID,
			ExpiresAt: refreshExp,
			CreatedAt: now,
		}

		if err := s.storage.SaveRefreshToken(ctx, row); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		s.cacheSet(ctx, row)

		return &models.TokenPair{
			AccessToken:      access,
			RefreshToken:     refresh,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: refreshExp,
		}, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// Кэш вторичен: его ошибки только логируются.

func (s *Service) cacheGet(ctx context.Context, hash string) (*cache.RefreshEntry, bool) {
	if s.rcache == nil {
		return nil, false
	}

	entry, ok, err := s.rcache.Get(ctx, hash)
	if err != nil {
		log.From(ctx).Warn("refresh_cache_get_failed", slog.String("err", err.Error()))
		return nil, false
	}

	return entry, ok
}

func (s *Service) cacheSet(ctx context.Context, row *models.RefreshToken) {
	if s.rcache == nil {
		return
	}

	entry := &cache.RefreshEntry{UserID: row.UserID, ExpiresAt: row.ExpiresAt}
	if err := s.rcache.Set(ctx, row.TokenHash, entry, row.ExpiresAt.Sub(s.now())); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed", slog.String("err", err.Error()))
	}
}

func (s *Service) cacheRevoked(ctx context.Context, hash string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_revoke_failed", slog.String("err", err.Error()))
	}
}
