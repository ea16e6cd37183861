package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusgate/outpass-api/internal/models"
	"github.com/campusgate/outpass-api/pkg/jobs"
)

// Notifier delivers lifecycle events to interested users. Delivery is
// fire-and-forget: implementations must never block the caller on downstream
// transport, and callers never treat a delivery failure as an operation
// failure.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent)
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events on a Redis channel through a background
// queue. Enqueueing is near-instant; publish failures are retried by the
// queue and finally logged, never surfaced.
type RedisNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// RedisNotifierConfig tunes the dispatch queue.
type RedisNotifierConfig struct {
	Channel    string
	Workers    int
	MaxRetries int
}

// NewRedisNotifier builds the notifier and its dispatch queue. Start must be
// called before events are accepted.
func NewRedisNotifier(client redisPublisher, cfg RedisNotifierConfig, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "outpass.events"
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.([]byte)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return client.Publish(ctx, channel, payload).Err()
	}
	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return &RedisNotifier{queue: queue, logger: logger}
}

// Start begins background dispatch.
func (n *RedisNotifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (n *RedisNotifier) Stop() {
	n.queue.Stop()
}

// Notify enqueues the event for publication.
func (n *RedisNotifier) Notify(ctx context.Context, event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to encode notification", zap.Error(err), zap.String("kind", string(event.Kind)))
		return
	}
	err = n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Kind),
		Payload: payload,
	})
	if err != nil {
		n.logger.Warn("failed to enqueue notification",
			zap.Error(err),
			zap.String("kind", string(event.Kind)),
			zap.String("outpass_id", event.OutpassID),
		)
	}
}
