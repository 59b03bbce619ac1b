package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursekeep-go/internal/models"
)

// Activity event types.
const (
	EventLessonCompleted   = "lesson.completed"
	EventLessonUncompleted = "lesson.uncompleted"
	EventBookmarkToggled   = "bookmark.toggled"
	EventStreakUpdated     = "streak.updated"
)

// ActivityEvent is published after every ledger mutation.
type ActivityEvent struct {
	Type       string               `json:"type"`
	LessonID   string               `json:"lessonId,omitempty"`
	CourseID   string               `json:"courseId,omitempty"`
	State      bool                 `json:"state"`
	Streak     *models.StreakRecord `json:"streak,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// ActivityPublisher delivers activity events to an external stream.
type ActivityPublisher interface {
	Publish(ctx context.Context, event ActivityEvent) error
}

type natsActivityPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSActivityPublisher publishes events as JSON on subject.
func NewNATSActivityPublisher(conn *nats.Conn, subject string) ActivityPublisher {
	return &natsActivityPublisher{conn: conn, subject: subject}
}

func (p *natsActivityPublisher) Publish(_ context.Context, event ActivityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}

// Close flushes buffered events and closes the connection. ctx must carry a deadline.
func (p *natsActivityPublisher) Close(ctx context.Context) error {
	err := p.conn.FlushWithContext(ctx)
	p.conn.Close()
	return err
}

type redisActivityPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisActivityPublisher publishes events as JSON on a Redis pub/sub channel.
func NewRedisActivityPublisher(client *redis.Client, channel string) ActivityPublisher {
	return &redisActivityPublisher{client: client, channel: channel}
}

func (p *redisActivityPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

type multiActivityPublisher []ActivityPublisher

// NewActivityPublisher fans out to every non-nil publisher. With none it discards events.
func NewActivityPublisher(publishers ...ActivityPublisher) ActivityPublisher {
	active := make(multiActivityPublisher, 0, len(publishers))
	for _, publisher := range publishers {
		if publisher != nil {
			active = append(active, publisher)
		}
	}
	return active
}

func (m multiActivityPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, publisher := range m {
		if err := publisher.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiActivityPublisher) Close(ctx context.Context) error {
	var first error
	for _, publisher := range m {
		if err := CloseActivityPublisher(ctx, publisher); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type activityCloser interface {
	Close(ctx context.Context) error
}

// CloseActivityPublisher releases the connections owned by publisher. Publishers built on a
// shared client, such as the Redis one, are left alone.
func CloseActivityPublisher(ctx context.Context, publisher ActivityPublisher) error {
	closer, ok := publisher.(activityCloser)
	if !ok {
		return nil
	}
	return closer.Close(ctx)
}

// publishActivity logs delivery failures instead of returning them.
func publishActivity(ctx context.Context, publisher ActivityPublisher, logger zerolog.Logger, event ActivityEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish activity event")
	}
}
