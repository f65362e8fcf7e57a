package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "ar_content:"
	publishTimeout = 5 * time.Second
)

// Event names published on content channels.
const (
	EventVideoExpiring       = "video_expiring"
	EventVideoExpired        = "video_expired"
	EventActiveVideoChanged  = "active_video_changed"
	EventRotationRuleChanged = "rotation_rule_changed"
	EventVideoUpdated        = "video_updated"
)

// Message is the envelope published to Redis.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// Channel returns the pub/sub channel for an AR content item.
func Channel(arContentID uuid.UUID) string {
	return channelPrefix + arContentID.String()
}

// Publisher publishes per-content events over Redis pub/sub.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates a Redis pub/sub publisher.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, logger: logger}
}

// PublishContentEvent publishes event with a JSON-encoded payload on the item's channel.
func (p *Publisher) PublishContentEvent(ctx context.Context, arContentID uuid.UUID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(Message{Event: event, Data: data, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, Channel(arContentID), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	p.logger.Debug("published content event", zap.String("ar_content_id", arContentID.String()), zap.String("event", event))
	return nil
}

// Subscribe calls handler for each message on the item's channel until ctx is done or cancel is called.
func (p *Publisher) Subscribe(ctx context.Context, arContentID uuid.UUID, handler func(Message)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := p.client.Subscribe(ctx, Channel(arContentID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					p.logger.Warn("invalid content event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				handler(m)
			}
		}
	}()
	return func() {
		cancelCtx()
		<-done
	}, nil
}
