package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

func newTestSink(t *testing.T) (*EventSink, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewEventSink(client, time.Minute), mr
}

func TestMirrorsEventsToSessionList(t *testing.T) {
	sink, mr := newTestSink(t)
	ctx := context.Background()

	if err := sink.Begin(ctx, "sess-1", time.UnixMilli(1_700_000_000_000)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !mr.Exists("gameshow:session:sess-1:started") {
		t.Fatalf("expected liveness marker")
	}

	for i := 0; i < 3; i++ {
		ev := domain.Event{
			SessionID: "sess-1",
			Kind:      domain.EventBuzz,
			Timestamp: 1_700_000_000_000 + int64(i),
			Payload:   map[string]any{"rank": i + 1},
		}
		if err := sink.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	items, err := mr.List("gameshow:session:sess-1:events")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 mirrored events, got %d", len(items))
	}
	var ev domain.Event
	if err := json.Unmarshal([]byte(items[2]), &ev); err != nil {
		t.Fatalf("unmarshal mirrored event: %v", err)
	}
	if ev.Kind != domain.EventBuzz || ev.Payload["rank"] != float64(3) {
		t.Fatalf("unexpected mirrored event: %+v", ev)
	}

	if mr.TTL("gameshow:session:sess-1:events") <= 0 {
		t.Fatalf("expected TTL on events list")
	}
}

func TestEndClearsLivenessMarkerOnly(t *testing.T) {
	sink, mr := newTestSink(t)
	ctx := context.Background()

	if err := sink.Begin(ctx, "sess-1", time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	ev := domain.Event{SessionID: "sess-1", Kind: domain.EventBuzz, Timestamp: 1}
	if err := sink.Record(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := sink.End(ctx, "sess-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if mr.Exists("gameshow:session:sess-1:started") {
		t.Fatalf("liveness marker should be gone")
	}
	if !mr.Exists("gameshow:session:sess-1:events") {
		t.Fatalf("event list should remain until its TTL lapses")
	}
}

func TestBeginResetsStaleList(t *testing.T) {
	sink, mr := newTestSink(t)
	ctx := context.Background()

	if err := sink.Begin(ctx, "sess-1", time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	ev := domain.Event{SessionID: "sess-1", Kind: domain.EventBuzz, Timestamp: 1}
	if err := sink.Record(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := sink.Begin(ctx, "sess-1", time.Now()); err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if mr.Exists("gameshow:session:sess-1:events") {
		t.Fatalf("expected stale event list cleared on begin")
	}
}
