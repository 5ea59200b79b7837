// postgres — реализация storage.Storage поверх pgxpool.
//
// Каждый запрос выполняется с таймаутом DBConfig.QueryTimeout и повторяется
// с экспоненциальной задержкой только на транзиентных ошибках соединения
// (pgconn.SafeToRetry, ошибки установки соединения, класс 08 и остановка сервера).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/internal/storage"
)

const (
	defaultQueryTimeout = 3 * time.Second
	maxQueryRetries     = 3
)

type Storage struct {
	db           *pgxpool.Pool
	queryTimeout time.Duration
	newBackOff   func() backoff.BackOff
}

// New создает пул соединений к PostgreSQL и дожидается его доступности.
// Ping повторяется с backoff, пока не истечёт ctx.
func New(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	const op = "storage.postgres.New"

	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{
		db:           db,
		queryTimeout: cfg.QueryTimeout,
		newBackOff:   defaultBackOff,
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = defaultQueryTimeout
	}

	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()

		return db.Ping(pctx)
	}

	if err := backoff.Retry(ping, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// Ping проверяет доступность БД (readiness).
func (s *Storage) Ping(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.db.Ping(ctx)
	})
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// do выполняет fn с таймаутом запроса и повторяет её на транзиентных ошибках.
func (s *Storage) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := func() error {
		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()

		err := fn(qctx)
		if err == nil || isTransient(err) {
			return err
		}

		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), maxQueryRetries), ctx)
	return backoff.Retry(attempt, b)
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// isTransient — ошибка соединения, после которой запрос безопасно повторить.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.AdminShutdown, pgerrcode.CrashShutdown, pgerrcode.CannotConnectNow:
			return true
		}

		return pgerrcode.IsConnectionException(pgErr.Code)
	}

	return false
}

// isUniqueViolation — нарушение уникального индекса.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
