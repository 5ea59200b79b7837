package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/snapfood/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/объект).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
)

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/snapfood/internal/storage Storage,ImageStorage

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// DeleteUser удаляет пользователя вместе с его токенами и сканами.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен (по хэшу).
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken атомарно отзывает активный токен.
	// (true, nil) — отозван сейчас; (false, nil) — уже был отозван; ErrNotFound — нет такого.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	// DeleteStaleTokens удаляет просроченные токены и токены, отозванные до revokedBefore.
	DeleteStaleTokens(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

// ScanStorage хранит результаты анализа еды.
type ScanStorage interface {
	// SaveScan сохраняет скан.
	SaveScan(ctx context.Context, scan *models.Scan) error
	// ScansByUser возвращает последние сканы пользователя, новые первыми.
	ScansByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Scan, error)
}

// DashboardStorage — read-only проекции по сканам пользователя.
type DashboardStorage interface {
	DayStats(ctx context.Context, userID uuid.UUID) (*models.DayStats, error)
	RecentScans(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecentScan, error)
	WeeklyTrend(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.TrendPoint, error)
	NutritionBreakdown(ctx context.Context, userID uuid.UUID, since time.Time) (*models.NutritionBreakdown, error)
	HealthRisk(ctx context.Context, userID uuid.UUID) ([]models.RiskWeek, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	ScanStorage
	DashboardStorage
	Ping(ctx context.Context) error
	Close()
}
