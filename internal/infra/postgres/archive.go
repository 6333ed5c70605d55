// Package postgres archives ended session event logs so past shows can be
// re-exported at any frame rate after the server process is gone. Writes go
// through bun; reads use a pgx pool (see session_loader.go).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// SessionRecord is the archived row for one ended session.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        string          `bun:"id,pk"`
	StartedAt time.Time       `bun:"started_at,notnull"`
	EndedAt   time.Time       `bun:"ended_at,notnull"`
	Events    json.RawMessage `bun:"events,type:jsonb,notnull"`
}

// Archiver stores ended sessions.
type Archiver struct {
	db *bun.DB
}

func NewArchiver(db *bun.DB) *Archiver {
	return &Archiver{db: db}
}

// Archive upserts the full event sequence of an ended session.
func (a *Archiver) Archive(ctx context.Context, sessionID string, startedAt, endedAt time.Time, events []domain.Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal session events: %w", err)
	}
	record := &SessionRecord{
		ID:        sessionID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Events:    raw,
	}
	_, err = a.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("ended_at = EXCLUDED.ended_at").
		Set("events = EXCLUDED.events").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", sessionID, err)
	}
	return nil
}
