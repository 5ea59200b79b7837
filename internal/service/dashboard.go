package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/snapfood/internal/models"
)

const (
	recentScansLimit = 5
	trendWindow      = 7 * 24 * time.Hour

	// Заглушки сводки: целей и оценки здоровья пока нет.
	placeholderHealthScore    = 85
	placeholderCaloriesTarget = 2000
	placeholderGoalsMet       = "8/10"
)

// Summary — сводка дашборда за сегодня.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*models.Summary, error) {
	const op = "service.dashboard.Summary"

	st, err := s.storage.DayStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Summary{
		TodaysCalories: st.TodaysCalories,
		MealsLogged:    st.MealsLogged,
		HealthScore:    placeholderHealthScore,
		CaloriesTarget: placeholderCaloriesTarget,
		GoalsMet:       placeholderGoalsMet,
	}, nil
}

// RecentScans — пять последних сканов.
func (s *Service) RecentScans(ctx context.Context, userID uuid.UUID) ([]models.RecentScan, error) {
	const op = "service.dashboard.RecentScans"

	out, err := s.storage.RecentScans(ctx, userID, recentScansLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nonNil(out), nil
}

// WeeklyTrend — калории по дням за последние 7 дней.
func (s *Service) WeeklyTrend(ctx context.Context, userID uuid.UUID) ([]models.TrendPoint, error) {
	const op = "service.dashboard.WeeklyTrend"

	out, err := s.storage.WeeklyTrend(ctx, userID, s.now().Add(-trendWindow))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nonNil(out), nil
}

// NutritionBreakdown — макронутриенты за последние 7 дней.
func (s *Service) NutritionBreakdown(ctx context.Context, userID uuid.UUID) (*models.NutritionBreakdown, error) {
	const op = "service.dashboard.NutritionBreakdown"

	out, err := s.storage.NutritionBreakdown(ctx, userID, s.now().Add(-trendWindow))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// HealthRisk — распределение уровней риска по неделям.
func (s *Service) HealthRisk(ctx context.Context, userID uuid.UUID) ([]models.RiskWeek, error) {
	const op = "service.dashboard.HealthRisk"

	out, err := s.storage.HealthRisk(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nonNil(out), nil
}

// nonNil гарантирует JSON-массив [] вместо null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}

	return v
}
