package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// SessionSummary is one row of the archive listing.
type SessionSummary struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Events    int       `json:"events"`
}

// SessionLoader reads archived sessions from Postgres.
type SessionLoader struct {
	pool *pgxpool.Pool
}

func NewSessionLoader(pool *pgxpool.Pool) *SessionLoader {
	return &SessionLoader{pool: pool}
}

// LoadSession returns the archived event sequence for one session.
func (l *SessionLoader) LoadSession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT events FROM sessions WHERE id=$1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return events, nil
}

// ListSessions returns archived sessions, newest first.
func (l *SessionLoader) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, started_at, ended_at, jsonb_array_length(events)
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionID, &s.StartedAt, &s.EndedAt, &s.Events); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
