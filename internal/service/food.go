package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/snapfood/internal/events"
	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// Уровни риска, которые сохраняются в food_scan.risk_level.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Analyze распознаёт блюдо на фото, сохраняет скан и возвращает результат.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, image, healthCondition string) (*models.ScanResult, error) {
	const op = "service.food.Analyze"

	lg := log.From(ctx)

	payload, raw, contentType, err := s.decodeImage(image)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.analyzer == nil {
		return nil, fmt.Errorf("%s: %w: analyzer not configured", op, ErrUpstream)
	}

	healthCondition = strings.TrimSpace(healthCondition)
	conditions := []string{}
	if healthCondition != "" {
		conditions = append(conditions, healthCondition)
	}

	analysis, err := s.analyzer.Analyze(ctx, payload, conditions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}

		lg.Error("ai_analyze_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
	}

	nutrients := analysis.Nutrients
	if nutrients == nil {
		nutrients = models.Nutrients{}
	}
	calories := caloriesOf(nutrients)

	if calories == 0 && s.nutrition != nil {
		found, err := s.nutrition.Lookup(ctx, analysis.Food)
		if err != nil {
			lg.Warn("nutrition_lookup_failed",
				slog.String("op", op),
				slog.String("food", analysis.Food),
				slog.String("err", err.Error()),
			)
		} else {
			nutrients = fillMissing(nutrients, found)
			calories = caloriesOf(nutrients)
		}
	}

	now := s.now()
	scan := &models.Scan{
		ID:              uuid.New(),
		UserID:          userID,
		DishName:        analysis.Food,
		Nutrients:       nutrients,
		Calories:        calories,
		Confidence:      analysis.Confidence,
		Advice:          analysis.Advice,
		Substitute:      analysis.Substitute,
		HealthCondition: healthCondition,
		RiskLevel:       normalizeRisk(analysis.RiskLevel, analysis.RiskScore),
		ScannedAt:       now,
		CreatedAt:       now,
	}

	if s.images != nil {
		key, err := s.images.PutScanImage(ctx, userID, scan.ID, contentType, raw)
		if err != nil {
			lg.Warn("scan_image_archive_failed",
				slog.String("op", op),
				slog.String("scan_id", scan.ID.String()),
				slog.String("err", err.Error()),
			)
		} else {
			scan.ImageKey = key
		}
	}

	if err := s.storage.SaveScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.TypeScanCreated, userID, map[string]any{
		"scanId":    scan.ID.String(),
		"food":      scan.DishName,
		"calories":  scan.Calories,
		"riskLevel": scan.RiskLevel,
	})

	return &models.ScanResult{Scan: scan, RiskScore: analysis.RiskScore}, nil
}

// History возвращает последние сканы пользователя.
// limit <= 0 означает значение по умолчанию, сверху ограничен MaxHistoryLimit.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Scan, error) {
	const op = "service.food.History"

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	scans, err := s.storage.ScansByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return scans, nil
}

// decodeImage снимает data-URL префикс и проверяет base64 и размер.
// Возвращает base64 без префикса, декодированные байты и content type.
func (s *Service) decodeImage(image string) (string, []byte, string, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", nil, "", invalid("image", "is required")
	}

	var contentType string
	if strings.HasPrefix(image, "data:") {
		header, data, ok := strings.Cut(image, ",")
		if !ok {
			return "", nil, "", invalid("image", "is not a valid data URL")
		}
		meta := strings.TrimPrefix(header, "data:")
		contentType, _, _ = strings.Cut(meta, ";")
		image = data
	}

	// Быстрая проверка до декодирования: base64 даёт 4 символа на 3 байта.
	if int64(len(image))/4*3 > s.maxImageBytes+3 {
		return "", nil, "", invalid("image", "is too large")
	}

	raw, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(image)
	}
	if err != nil || len(raw) == 0 {
		return "", nil, "", invalid("image", "must be base64-encoded")
	}

	if int64(len(raw)) > s.maxImageBytes {
		return "", nil, "", invalid("image", "is too large")
	}

	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}

	return image, raw, contentType, nil
}

// normalizeRisk приводит уровень риска AI-сервиса ("🟢 Low Risk" и т.п.) к low|medium|high.
// Если текста нет, уровень выводится из risk_score по тем же порогам, что у AI-сервиса.
func normalizeRisk(level string, score *float64) string {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "high"):
		return RiskHigh
	case strings.Contains(l, "medium"), strings.Contains(l, "moderate"):
		return RiskMedium
	case strings.Contains(l, "low"):
		return RiskLow
	}

	if score == nil {
		return ""
	}

	switch {
	case *score <= 30:
		return RiskLow
	case *score <= 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func caloriesOf(n models.Nutrients) int {
	v, ok := n.Number("calories")
	if !ok || math.IsNaN(v) || v < 0 {
		return 0
	}

	return int(math.Round(v))
}

// fillMissing дополняет нутриенты AI значениями из справочника, не перетирая ненулевые.
func fillMissing(dst, src models.Nutrients) models.Nutrients {
	out := make(models.Nutrients, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}

	for k, v := range src {
		if _, ok := out[k]; ok {
			if n, isNum := out.Number(k); !isNum || n != 0 {
				continue
			}
		}
		out[k] = v
	}

	return out
}
