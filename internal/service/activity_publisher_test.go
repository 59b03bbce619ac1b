package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, ActivityEvent) error {
	return errors.New("broker down")
}

func TestRedisActivityPublisherDeliversJSON(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "coursekeep.activity")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewRedisActivityPublisher(client, "coursekeep.activity")
	require.NoError(t, publisher.Publish(ctx, ActivityEvent{Type: EventBookmarkToggled, CourseID: "c1", State: true}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event ActivityEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, EventBookmarkToggled, event.Type)
	require.Equal(t, "c1", event.CourseID)
	require.True(t, event.State)
}

func TestActivityPublisherFanOut(t *testing.T) {
	recorder := &recordingPublisher{}
	publisher := NewActivityPublisher(nil, failingPublisher{}, recorder)

	err := publisher.Publish(context.Background(), ActivityEvent{Type: EventStreakUpdated})
	require.Error(t, err)
	require.Equal(t, []string{EventStreakUpdated}, recorder.types())

	require.NoError(t, NewActivityPublisher().Publish(context.Background(), ActivityEvent{Type: EventLessonCompleted}))
}

type closingPublisher struct {
	recordingPublisher
	closed int
	err    error
}

func (p *closingPublisher) Close(context.Context) error {
	p.closed++
	return p.err
}

func TestCloseActivityPublisherClosesOwnedConnections(t *testing.T) {
	ctx := context.Background()
	healthy := &closingPublisher{}
	broken := &closingPublisher{err: errors.New("flush timed out")}
	publisher := NewActivityPublisher(healthy, failingPublisher{}, broken)

	err := CloseActivityPublisher(ctx, publisher)
	require.EqualError(t, err, "flush timed out")
	require.Equal(t, 1, healthy.closed)
	require.Equal(t, 1, broken.closed)

	require.NoError(t, CloseActivityPublisher(ctx, failingPublisher{}))
	require.NoError(t, CloseActivityPublisher(ctx, nil))
}
