package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/storage"
)

// SaveRefreshToken сохраняет новый refresh-токен в БД.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens(id, user_id, token_hash, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := s.do(ctx, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, query,
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Revoked,
			token.ExpiresAt,
			token.CreatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	const query = `
		SELECT id, user_id, token_hash, revoked, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token models.RefreshToken
	err := s.do(ctx, func(ctx context.Context) error {
		return s.db.QueryRow(ctx, query, hash).Scan(
			&token.ID,
			&token.UserID,
			&token.TokenHash,
			&token.Revoked,
			&token.ExpiresAt,
			&token.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// RevokeRefreshToken пытается отозвать refresh-токен, если он ещё не был отозван.
// Условный UPDATE выполняется атомарно: из конкурентных вызовов true получит ровно один.
// Возвращает:
//
//	(true, nil)  — токен был активен и успешно отозван сейчас;
//	(false, nil) — токен существует, но уже был отозван;
//	(false, ErrNotFound) — токен не найден.
func (s *Storage) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	const op = "storage.postgres.RevokeRefreshToken"

	const upd = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_hash = $1 AND revoked = FALSE
	`

	var affected int64
	err := s.do(ctx, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, upd, hash)
		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if affected > 0 {
		return true, nil
	}

	const sel = `SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token_hash = $1)`

	var exists bool
	err = s.do(ctx, func(ctx context.Context) error {
		return s.db.QueryRow(ctx, sel, hash).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return false, nil
}

// DeleteStaleTokens удаляет просроченные токены и токены, отозванные раньше revokedBefore.
func (s *Storage) DeleteStaleTokens(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	const op = "storage.postgres.DeleteStaleTokens"

	const query = `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
		   OR (revoked = TRUE AND created_at <= $2)
	`

	var deleted int64
	err := s.do(ctx, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, query, now, revokedBefore)
		if err != nil {
			return err
		}

		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return deleted, nil
}
