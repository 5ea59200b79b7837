package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/snapfood/internal/cache"
	"github.com/pribylovaa/snapfood/internal/clients/ai"
	"github.com/pribylovaa/snapfood/internal/clients/usda"
	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/internal/events"
	sfhttp "github.com/pribylovaa/snapfood/internal/http"
	"github.com/pribylovaa/snapfood/internal/http/handlers"
	"github.com/pribylovaa/snapfood/internal/metrics"
	"github.com/pribylovaa/snapfood/internal/service"
	"github.com/pribylovaa/snapfood/internal/storage/minio"
	"github.com/pribylovaa/snapfood/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// analyzeMargin — запас дедлайна /food/analyze сверх таймаута AI-клиента.
const analyzeMargin = 10 * time.Second

var errNotReady = errors.New("not ready")

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен; уже заданные переменные окружения не перезаписываются.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting snapfood", slog.String("env", cfg.Env))

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, cfg.DB.ConnectTimeout)
	str, err := postgres.New(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	opts := []service.Option{
		service.WithAnalyzer(ai.New(cfg.AI.URL, cfg.AI.Timeout)),
		service.WithMaxImageBytes(cfg.Food.MaxImageBytes),
		service.WithRevokedRetention(cfg.Janitor.RevokedRetention),
	}

	if cfg.USDA.APIKey != "" {
		opts = append(opts, service.WithNutrition(usda.New(cfg.USDA.URL, cfg.USDA.APIKey, cfg.USDA.Timeout)))
		log.Info("usda_enabled")
	}

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(rootCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer closeQuietly(log, "redis", rc.Close)
		opts = append(opts, service.WithRefreshCache(rc))
		log.Info("redis_connected")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer closeQuietly(log, "kafka", pub.Close)
		opts = append(opts, service.WithPublisher(pub))
		log.Info("kafka_enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	if cfg.S3.Endpoint != "" {
		s3Ctx, s3Cancel := context.WithTimeout(rootCtx, cfg.DB.ConnectTimeout)
		images, err := minio.New(s3Ctx, cfg.S3)
		s3Cancel()
		if err != nil {
			log.Error("s3_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		opts = append(opts, service.WithImageStorage(images))
		log.Info("s3_enabled", slog.String("bucket", cfg.S3.Bucket))
	}

	// Сервис.
	srvc := service.New(str, cfg.Auth, opts...)
	log.Info("service_initialized")

	var ready atomic.Bool

	h := handlers.New(srvc, handlers.Options{
		Cookie:        handlers.NewCookieConfig(cfg.Web, cfg.HTTP.BasePath, cfg.Auth.RefreshTokenTTL),
		MaxImageBytes: cfg.Food.MaxImageBytes,
	})

	router := sfhttp.NewRouter(h, srvc, sfhttp.Options{
		Logger:         log,
		BasePath:       cfg.HTTP.BasePath,
		Origins:        cfg.Web.AllowedOrigins(),
		RequestTimeout: cfg.Timeouts.Request,
		AnalyzeTimeout: max(cfg.Timeouts.Analyze, cfg.AI.Timeout+analyzeMargin),
		Ready: func(ctx context.Context) error {
			if !ready.Load() {
				return errNotReady
			}
			return srvc.Ping(ctx)
		},
	})

	// Фоновая очистка refresh-токенов.
	startRefreshJanitor(rootCtx, srvc, log, cfg.Janitor.Interval)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)
	log.Info("snapfood_ready")

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func closeQuietly(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("close_failed", slog.String("resource", name), slog.String("err", err.Error()))
	}
}

// tokenPurger — то, что умеет чистить refresh-токены.
type tokenPurger interface {
	PurgeStaleTokens(ctx context.Context, now time.Time) (int64, error)
}

// startRefreshJanitor периодически удаляет истёкшие и давно отозванные
// refresh-токены. Останавливается вместе с ctx.
func startRefreshJanitor(ctx context.Context, p tokenPurger, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				purgeOnce(ctx, p, log)
			}
		}
	}()
}

func purgeOnce(ctx context.Context, p tokenPurger, log *slog.Logger) {
	n, err := p.PurgeStaleTokens(ctx, time.Now().UTC())
	if err != nil {
		log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
		return
	}

	metrics.TokensPurged(n)
	if n > 0 {
		log.Info("refresh_tokens_purged", slog.Int64("count", n))
	}
}
