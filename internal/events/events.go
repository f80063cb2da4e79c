// Package events announces recorded predictions to an optional message
// broker for downstream consumers (notifications, analytics).
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/lungscan/apiserver/config"
)

// PredictionRecorded is emitted after a prediction record has been
// durably stored.
type PredictionRecorded struct {
	PredictionID int64     `json:"prediction_id"`
	UserID       *int64    `json:"user_id,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Publisher delivers prediction events to a broker.
type Publisher interface {
	PredictionRecorded(ctx context.Context, event PredictionRecorded) error
	Close() error
}

// NewFromConfig constructs the configured publisher. A nil publisher
// (with nil error) means event publishing is disabled.
func NewFromConfig(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend: %s", cfg.Backend)
	}
}
