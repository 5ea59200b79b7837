// config предоставляет структуру конфигурации SnapFood API и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// NodeEnvProduction — значение web.node_env, включающее production-атрибуты cookie.
const NodeEnvProduction = "production"

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	DB       DBConfig      `yaml:"db"`
	Auth     AuthConfig    `yaml:"auth"`
	Web      WebConfig     `yaml:"web"`
	AI       AIConfig      `yaml:"ai"`
	USDA     USDAConfig    `yaml:"usda"`
	Redis    RedisConfig   `yaml:"redis"`
	Kafka    KafkaConfig   `yaml:"kafka"`
	S3       S3Config      `yaml:"s3"`
	Food     FoodConfig    `yaml:"food"`
	Janitor  JanitorConfig `yaml:"janitor"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — настройки подключения к PostgreSQL.
// QueryTimeout ограничивает каждый отдельный запрос к БД.
type DBConfig struct {
	URL            string        `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	MaxConns       int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"20"`
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT" env-default:"3s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"10s"`
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Access и refresh подписываются разными секретами.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"snapfood"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	HashTimeout     time.Duration `yaml:"hash_timeout" env:"HASH_TIMEOUT" env-default:"5s"`
}

// WebConfig — единый объект настроек браузерного клиента: CORS и атрибуты cookie.
type WebConfig struct {
	Origins     []string `yaml:"origins" env:"CORS_ORIGINS" env-default:"http://localhost:5173"`
	FrontendURL string   `yaml:"frontend_url" env:"FRONTEND_URL"`
	NodeEnv     string   `yaml:"node_env" env:"NODE_ENV" env-default:"development"`
}

// IsProduction сообщает, включены ли production-атрибуты cookie (Secure, SameSite=None).
func (w WebConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(w.NodeEnv), NodeEnvProduction)
}

// AllowedOrigins возвращает список origin'ов для CORS: Origins + FrontendURL без дублей.
func (w WebConfig) AllowedOrigins() []string {
	seen := make(map[string]struct{}, len(w.Origins)+1)
	out := make([]string, 0, len(w.Origins)+1)

	for _, o := range append(append([]string{}, w.Origins...), w.FrontendURL) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}

	return out
}

// AIConfig — внешний сервис распознавания еды.
type AIConfig struct {
	URL     string        `yaml:"url" env:"AI_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"30s"`
}

// USDAConfig — поиск нутриентов в USDA FoodData Central. Пустой APIKey отключает клиента.
type USDAConfig struct {
	APIKey  string        `yaml:"api_key" env:"USDA_API_KEY"`
	URL     string        `yaml:"url" env:"USDA_URL" env-default:"https://api.nal.usda.gov/fdc/v1/foods/search"`
	Timeout time.Duration `yaml:"timeout" env:"USDA_TIMEOUT" env-default:"10s"`
}

// RedisConfig — кэш refresh-токенов. Пустой URL отключает кэш.
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"snapfood:rt:"`
}

// KafkaConfig — публикация доменных событий. Пустой список брокеров отключает публикацию.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"snapfood.events"`
}

// S3Config — архив изображений сканов (MinIO/S3). Пустой Endpoint отключает архив.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET" env-default:"snapfood-scans"`
}

// FoodConfig — ограничения на входные данные анализа.
type FoodConfig struct {
	MaxImageBytes int64 `yaml:"max_image_bytes" env:"FOOD_MAX_IMAGE_BYTES" env-default:"8388608"`
}

// JanitorConfig — фоновая очистка таблицы refresh_tokens.
type JanitorConfig struct {
	Interval         time.Duration `yaml:"interval" env:"JANITOR_INTERVAL" env-default:"30m"`
	RevokedRetention time.Duration `yaml:"revoked_retention" env:"JANITOR_REVOKED_RETENTION" env-default:"24h"`
}

// TimeoutConfig — таймауты обработки запросов и остановки.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
	Analyze  time.Duration `yaml:"analyze" env:"ANALYZE_TIMEOUT" env-default:"40s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return validated(&cfg)
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validated(&cfg)
}

// validated проверяет инварианты, которые не выражаются тегами cleanenv.
func validated(cfg *Config) (*Config, error) {
	if cfg.Auth.AccessSecret == cfg.Auth.RefreshSecret {
		return nil, errors.New("invalid config: auth.access_secret and auth.refresh_secret must differ")
	}

	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return nil, errors.New("invalid config: token ttl must be positive")
	}

	return cfg, nil
}
