package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/lungscan/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes prediction events to a Google Cloud Pub/Sub
// topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher constructs a Pub/Sub publisher from config.
func NewPubSubPublisher(ctx context.Context, cfg config.PubSubConfig) (*PubSubPublisher, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	topic := client.Topic(cfg.Topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, cfg.Topic)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	return &PubSubPublisher{
		client: client,
		topic:  topic,
	}, nil
}

// PredictionRecorded publishes the event to the configured topic.
func (p *PubSubPublisher) PredictionRecorded(ctx context.Context, event PredictionRecorded) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	return err
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
