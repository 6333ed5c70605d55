package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EventSink mirrors every appended event to a session-scoped Redis list so
// external overlay tooling can live-tail the show. Keys carry a TTL; the
// file sink remains the durable copy.
type EventSink struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEventSink(client *redis.Client, ttl time.Duration) *EventSink {
	return &EventSink{client: client, ttl: ttl}
}

func (s *EventSink) Begin(ctx context.Context, sessionID string, startedAt time.Time) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.metaKey(sessionID), startedAt.UnixMilli(), s.ttl)
	pipe.Del(ctx, s.eventsKey(sessionID))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("begin session in redis: %w", err)
	}
	return nil
}

func (s *EventSink) Record(ctx context.Context, ev domain.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.eventsKey(ev.SessionID), raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.eventsKey(ev.SessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror event to redis: %w", err)
	}
	return nil
}

func (s *EventSink) End(ctx context.Context, sessionID string) error {
	// The list stays readable until its TTL lapses; only the liveness marker
	// is cleared.
	if err := s.client.Del(ctx, s.metaKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("end session in redis: %w", err)
	}
	return nil
}

func (s *EventSink) metaKey(sessionID string) string {
	return "gameshow:session:" + sessionID + ":started"
}

func (s *EventSink) eventsKey(sessionID string) string {
	return "gameshow:session:" + sessionID + ":events"
}
