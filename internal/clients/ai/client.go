// ai — HTTP-клиент внешнего сервиса распознавания еды.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/snapfood/internal/models"
	"github.com/pribylovaa/snapfood/internal/pkg/log"
)

const (
	defaultTimeout = 30 * time.Second
	// maxResponseBytes ограничивает тело ответа AI-сервиса.
	maxResponseBytes = 1 << 20
)

var (
	// ErrStatus — AI-сервис ответил не-2xx.
	ErrStatus = errors.New("ai: unexpected status")
	// ErrRemote — AI-сервис вернул поле error.
	ErrRemote = errors.New("ai: remote error")
	// ErrMalformed — ответ не JSON или не содержит обязательных полей нужного типа.
	ErrMalformed = errors.New("ai: malformed response")
)

// Client реализует service.Analyzer.
type Client struct {
	url    string
	client *http.Client
}

// New создаёт клиента. Таймаут запроса задаётся на http.Client.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{url: url, client: &http.Client{Timeout: timeout}}
}

type analyzeRequest struct {
	Image      string   `json:"image"`
	Conditions []string `json:"conditions"`
}

// Analyze отправляет изображение на распознавание и проверяет структуру ответа.
func (c *Client) Analyze(ctx context.Context, image string, conditions []string) (*models.Analysis, error) {
	const op = "clients.ai.Analyze"

	if conditions == nil {
		conditions = []string{}
	}

	body, err := json.Marshal(analyzeRequest{Image: image, Conditions: conditions})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: new_request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", op, err)
	}

	log.From(ctx).Debug("ai_response",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
		slog.Int("bytes", len(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w: %d", op, ErrStatus, resp.StatusCode)
	}

	analysis, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return analysis, nil
}

// decode разбирает ответ поле за полем, чтобы отличать отсутствие поля от неверного типа.
func decode(raw []byte) (*models.Analysis, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if msg, ok := fields["error"]; ok && truthy(msg) {
		var text string
		if err := json.Unmarshal(msg, &text); err != nil {
			text = string(msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, text)
	}

	var a models.Analysis
	required := []struct {
		name string
		dst  any
	}{
		{"food", &a.Food},
		{"confidence", &a.Confidence},
		{"nutrients", &a.Nutrients},
		{"advice", &a.Advice},
		{"substitute", &a.Substitute},
	}

	for _, f := range required {
		v, ok := fields[f.name]
		if !ok || isNull(v) {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformed, f.name)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrMalformed, f.name, err)
		}
	}

	// Необязательные поля: неверный тип не ломает ответ.
	if v, ok := fields["risk_level"]; ok {
		_ = json.Unmarshal(v, &a.RiskLevel)
	}
	if v, ok := fields["risk_score"]; ok && !isNull(v) {
		var score float64
		if json.Unmarshal(v, &score) == nil {
			a.RiskScore = &score
		}
	}
	if v, ok := fields["predictions"]; ok {
		_ = json.Unmarshal(v, &a.Predictions)
	}

	return &a, nil
}

// truthy сообщает, означает ли значение поля error отказ сервиса.
// null, false, 0 и пустая строка отказом не считаются.
func truthy(v json.RawMessage) bool {
	if isNull(v) {
		return false
	}

	var x any
	if err := json.Unmarshal(v, &x); err != nil {
		return false
	}

	switch t := x.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
