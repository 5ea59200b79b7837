package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/storage"
)

// SaveScan сохраняет результат анализа.
func (s *Storage) SaveScan(ctx context.Context, scan *models.Scan) error {
	const op = "storage.postgres.SaveScan"

	nutrients, err := json.Marshal(scan.Nutrients)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	const query = `
		INSERT INTO food_scan(
			id, user_id, dish_name, nutrients, calories, confidence,
			advice, substitute, health_condition, risk_level, image_key,
			scanned_at, created_at
		)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	err = s.do(ctx, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, query,
			scan.ID,
			scan.UserID,
			scan.DishName,
			string(nutrients),
			scan.Calories,
			scan.Confidence,
			scan.Advice,
			scan.Substitute,
			nullable(scan.HealthCondition),
			nullable(scan.RiskLevel),
			nullable(scan.ImageKey),
			scan.ScannedAt,
			scan.CreatedAt,
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

// ScansByUser возвращает последние limit сканов пользователя.
func (s *Storage) ScansByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Scan, error) {
	const op = "storage.postgres.ScansByUser"

	const query = `
		SELECT id, user_id, dish_name, nutrients, calories, confidence,
		       COALESCE(advice, ''), COALESCE(substitute, ''),
		       COALESCE(health_condition, ''), COALESCE(risk_level, ''), COALESCE(image_key, ''),
		       scanned_at, created_at
		FROM food_scan
		WHERE user_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`

	var out []models.Scan
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Scan, error) {
			var (
				sc  models.Scan
				raw []byte
			)

			if err := row.Scan(
				&sc.ID, &sc.UserID, &sc.DishName, &raw, &sc.Calories, &sc.Confidence,
				&sc.Advice, &sc.Substitute, &sc.HealthCondition, &sc.RiskLevel, &sc.ImageKey,
				&sc.ScannedAt, &sc.CreatedAt,
			); err != nil {
				return sc, err
			}

			if err := json.Unmarshal(raw, &sc.Nutrients); err != nil {
				return sc, err
			}

			return sc, nil
		})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// nullable превращает пустую строку в SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
