package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter — часть *kafka.Writer, нужная издателю.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в один топик, ключ сообщения — ID пользователя,
// поэтому события одного пользователя попадают в одну партицию.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher создаёт асинхронный writer. Ошибки доставки логируются в log.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	const op = "events.NewKafkaPublisher"

	if len(brokers) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errors.New("no brokers"))
	}
	if topic == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("empty topic"))
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed",
					slog.String("topic", topic),
					slog.Int("messages", len(msgs)),
					slog.String("err", err.Error()),
				)
			}
		},
	}

	return &KafkaPublisher{w: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	const op = "events.KafkaPublisher.Publish"

	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close дожидается отправки буфера и закрывает writer.
func (p *KafkaPublisher) Close() error { return p.w.Close() }

var _ Publisher = (*KafkaPublisher)(nil)
