// events — публикация доменных событий SnapFood.
// Публикация best-effort: ошибки логируются вызывающей стороной и не влияют на ответ.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Типы событий.
const (
	TypeUserRegistered = "user.registered"
	TypeUserLoggedIn   = "user.logged_in"
	TypeScanCreated    = "scan.created"
)

// Event — конверт доменного события.
type Event struct {
	Type       string         `json:"type"`
	UserID     uuid.UUID      `json:"userId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

//go:generate mockgen -destination=../../mocks/mock_events.go -package=mocks github.com/pribylovaa/snapfood/internal/events Publisher

// Publisher отправляет события во внешний брокер.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher используется, когда брокеры не настроены.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

var _ Publisher = NopPublisher{}
