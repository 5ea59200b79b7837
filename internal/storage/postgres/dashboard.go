package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/snapfood/internal/models"
)

// DayStats считает калории за текущие сутки (по часовому поясу БД) и общее число сканов.
func (s *Storage) DayStats(ctx context.Context, userID uuid.UUID) (*models.DayStats, error) {
	const op = "storage.postgres.DayStats"

	const query = `
		SELECT
			COALESCE(SUM(calories) FILTER (WHERE scanned_at::date = CURRENT_DATE), 0)::BIGINT,
			COUNT(*)::BIGINT
		FROM food_scan
		WHERE user_id = $1
	`

	var st models.DayStats
	err := s.do(ctx, func(ctx context.Context) error {
		return s.db.QueryRow(ctx, query, userID).Scan(&st.TodaysCalories, &st.MealsLogged)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &st, nil
}

// RecentScans возвращает последние limit сканов в компактном виде.
func (s *Storage) RecentScans(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentScan, error) {
	const op = "storage.postgres.RecentScans"

	const query = `
		SELECT dish_name, confidence, calories, health_condition, risk_level, scanned_at
		FROM food_scan
		WHERE user_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`

	var out []models.RecentScan
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RecentScan, error) {
			var r models.RecentScan
			err := row.Scan(&r.FoodName, &r.Confidence, &r.Calories, &r.HealthCondition, &r.RiskLevel, &r.ScannedAt)
			return r, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// WeeklyTrend — калории по дням начиная с since, по возрастанию даты.
func (s *Storage) WeeklyTrend(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.TrendPoint, error) {
	const op = "storage.postgres.WeeklyTrend"

	const query = `
		SELECT TO_CHAR(scanned_at::date, 'FMDay'), scanned_at::date, COALESCE(SUM(calories), 0)::BIGINT
		FROM food_scan
		WHERE user_id = $1 AND scanned_at >= $2
		GROUP BY scanned_at::date
		ORDER BY scanned_at::date
	`

	var out []models.TrendPoint
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, userID, since)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TrendPoint, error) {
			var p models.TrendPoint
			err := row.Scan(&p.Day, &p.Date, &p.Calories)
			return p, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// NutritionBreakdown суммирует числовые макронутриенты начиная с since.
// Нечисловые и отсутствующие значения считаются нулём.
func (s *Storage) NutritionBreakdown(ctx context.Context, userID uuid.UUID, since time.Time) (*models.NutritionBreakdown, error) {
	const op = "storage.postgres.NutritionBreakdown"

	const query = `
		SELECT
			COALESCE(SUM(CASE WHEN jsonb_typeof(nutrients->'protein') = 'number' THEN (nutrients->>'protein')::NUMERIC END), 0)::FLOAT8,
			COALESCE(SUM(CASE WHEN jsonb_typeof(nutrients->'carbs')   = 'number' THEN (nutrients->>'carbs')::NUMERIC END), 0)::FLOAT8,
			COALESCE(SUM(CASE WHEN jsonb_typeof(nutrients->'fat')     = 'number' THEN (nutrients->>'fat')::NUMERIC END), 0)::FLOAT8,
			COALESCE(SUM(CASE WHEN jsonb_typeof(nutrients->'fiber')   = 'number' THEN (nutrients->>'fiber')::NUMERIC END), 0)::FLOAT8
		FROM food_scan
		WHERE user_id = $1 AND scanned_at >= $2
	`

	var nb models.NutritionBreakdown
	err := s.do(ctx, func(ctx context.Context) error {
		return s.db.QueryRow(ctx, query, userID, since).Scan(&nb.Protein, &nb.Carbs, &nb.Fat, &nb.Fiber)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &nb, nil
}

// HealthRisk — число сканов каждого уровня риска по неделям.
func (s *Storage) HealthRisk(ctx context.Context, userID uuid.UUID) ([]models.RiskWeek, error) {
	const op = "storage.postgres.HealthRisk"

	const query = `
		SELECT DATE_TRUNC('week', scanned_at) AS week,
		       COUNT(*) FILTER (WHERE risk_level = 'high'),
		       COUNT(*) FILTER (WHERE risk_level = 'medium'),
		       COUNT(*) FILTER (WHERE risk_level = 'low')
		FROM food_scan
		WHERE user_id = $1
		GROUP BY week
		ORDER BY week
	`

	var out []models.RiskWeek
	err := s.do(ctx, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RiskWeek, error) {
			var w models.RiskWeek
			err := row.Scan(&w.Week, &w.High, &w.Medium, &w.Low)
			return w, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
