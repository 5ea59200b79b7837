// handlers — REST-обработчики SnapFood: сессии, анализ еды и дашборд.
// Ошибки отдаются только через apierrors.WriteError.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/snapfood/internal/errors"
	"github.com/pribylovaa/snapfood/internal/http/middleware"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/service"
)

const defaultMaxBodyBytes int64 = 1 << 20

//go:generate mockgen -destination=../../../mocks/mock_handlers.go -package=mocks github.com/pribylovaa/snapfood/internal/http/handlers Service

// Service — операции бизнес-слоя, нужные обработчикам.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)

	Analyze(ctx context.Context, userID uuid.UUID, image, healthCondition string) (*models.ScanResult, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Scan, error)

	Summary(ctx context.Context, userID uuid.UUID) (*models.Summary, error)
	RecentScans(ctx context.Context, userID uuid.UUID) ([]models.RecentScan, error)
	WeeklyTrend(ctx context.Context, userID uuid.UUID) ([]models.TrendPoint, error)
	NutritionBreakdown(ctx context.Context, userID uuid.UUID) (*models.NutritionBreakdown, error)
	HealthRisk(ctx context.Context, userID uuid.UUID) ([]models.RiskWeek, error)
}

var _ Service = (*service.Service)(nil)

// Options — параметры обработчиков.
type Options struct {
	Cookie CookieConfig
	// MaxImageBytes — лимит декодированного изображения; тело /food/analyze
	// ограничивается его base64-размером с запасом на JSON.
	MaxImageBytes int64
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc          Service
	cookie       CookieConfig
	validate     *validator.Validate
	maxBodyBytes int64
	maxAnalyze   int64
}

func New(svc Service, opts Options) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	maxAnalyze := defaultMaxBodyBytes
	if opts.MaxImageBytes > 0 {
		maxAnalyze = opts.MaxImageBytes/3*4 + 4 + defaultMaxBodyBytes
	}

	return &Handlers{
		svc:          svc,
		cookie:       opts.Cookie.withDefaults(),
		validate:     v,
		maxBodyBytes: defaultMaxBodyBytes,
		maxAnalyze:   maxAnalyze,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер с лимитом тела: неизвестные поля запрещены.
func decodeStrict(w http.ResponseWriter, r *http.Request, limit int64, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apierrors.ErrPayloadTooLarge
		case errors.Is(err, io.EOF):
			return &service.ValidationError{Field: "body", Reason: "is required"}
		default:
			return &service.ValidationError{Field: "body", Reason: "is not valid JSON"}
		}
	}

	return nil
}

// bind декодирует тело и проверяет теги validate.
func (h *Handlers) bind(w http.ResponseWriter, r *http.Request, limit int64, value any) error {
	if err := decodeStrict(w, r, limit, value); err != nil {
		return err
	}

	return h.check(value)
}

// check переводит первую ошибку validator в *service.ValidationError.
func (h *Handlers) check(value any) error {
	err := h.validate.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &service.ValidationError{Field: "body", Reason: "is invalid"}
	}

	fe := verrs[0]
	return &service.ValidationError{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// principal возвращает владельца запроса; маршрут обязан стоять за Authenticate.
func principal(r *http.Request) (*models.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return nil, service.ErrUnauthenticated
	}

	return p, nil
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
