// Package file persists session event logs as one JSON document per session,
// named by session-start timestamp. Every append rewrites the file in full
// (O(n) per write, fine at game-show event volumes), so a crash loses at most
// the in-flight event.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

const fileTimeLayout = "2006-01-02T15-04-05"

// SessionFile is the on-disk document shape.
type SessionFile struct {
	SessionID string         `json:"sessionId"`
	StartedAt int64          `json:"startedAt"`
	Events    []domain.Event `json:"events"`
}

// Sink implements app.EventSink on the local filesystem.
type Sink struct {
	dir string

	mu   sync.Mutex
	open map[string]*openSession
}

type openSession struct {
	path string
	doc  SessionFile
}

// NewSink writes session files under dir, creating it if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	return &Sink{dir: dir, open: make(map[string]*openSession)}, nil
}

func (s *Sink) Begin(_ context.Context, sessionID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &openSession{
		path: filepath.Join(s.dir, fmt.Sprintf("session-%s.json", startedAt.UTC().Format(fileTimeLayout))),
		doc: SessionFile{
			SessionID: sessionID,
			StartedAt: startedAt.UnixMilli(),
		},
	}
	s.open[sessionID] = session
	return s.flushLocked(session)
}

func (s *Sink) Record(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.open[ev.SessionID]
	if !ok {
		return fmt.Errorf("no open session file for %s", ev.SessionID)
	}
	session.doc.Events = append(session.doc.Events, ev)
	return s.flushLocked(session)
}

func (s *Sink) End(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, sessionID)
	return nil
}

func (s *Sink) flushLocked(session *openSession) error {
	data, err := json.MarshalIndent(session.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}
	if err := os.WriteFile(session.path, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads a session file back, for offline re-export.
func Load(path string) (SessionFile, error) {
	var doc SessionFile
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse session file: %w", err)
	}
	return doc, nil
}
