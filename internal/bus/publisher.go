package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Attribute names attached to published messages for subscriber filtering.
const (
	AttrUserID           = "userId"
	AttrRole             = "role"
	AttrNotificationType = "notificationType"
)

// Envelope is the wire format for a published notification. Subscribers
// filter on Attributes without parsing Message.
type Envelope struct {
	ID         string            `json:"id"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher sends messages to named topics. Delivery is at-most-once and
// best-effort; callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, topic, message string, attrs map[string]string) error
}

type redisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher over Redis pub/sub channels.
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) Publisher {
	return &redisPublisher{client: client, logger: logger}
}

func (p *redisPublisher) Publish(ctx context.Context, topic, message string, attrs map[string]string) error {
	envelope := Envelope{
		ID:         uuid.NewString(),
		Message:    message,
		Attributes: attrs,
		Timestamp:  time.Now(),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return err
	}
	p.logger.Debug("notification published",
		zap.String("topic", topic),
		zap.String("message_id", envelope.ID))
	return nil
}
