package models

import (
	"time"

	"github.com/google/uuid"
)

// Nutrients — произвольный JSON-объект нутриентов, как его вернул AI-сервис.
// Ожидаемые числовые ключи: calories, protein, carbs, fat, fiber.
type Nutrients map[string]any

// Number возвращает числовое значение ключа и признак его наличия.
func (n Nutrients) Number(key string) (float64, bool) {
	switch v := n[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Prediction — альтернативная гипотеза классификатора.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Analysis — проверенный ответ AI-сервиса.
type Analysis struct {
	Food        string
	Confidence  float64
	Nutrients   Nutrients
	Advice      string
	Substitute  string
	RiskLevel   string
	RiskScore   *float64
	Predictions []Prediction
}

// Scan — сохранённый результат анализа одного изображения.
type Scan struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	DishName        string
	Nutrients       Nutrients
	Calories        int
	Confidence      float64
	Advice          string
	Substitute      string
	HealthCondition string
	RiskLevel       string
	ImageKey        string
	ScannedAt       time.Time
	CreatedAt       time.Time
}

// ScanResult — ответ эндпоинта анализа.
type ScanResult struct {
	Scan      *Scan
	RiskScore *float64
}
