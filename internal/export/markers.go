// Package export turns a session's event sequence into editor-facing marker
// formats. Everything here is a pure transformation of the captured events;
// nothing reads live game state.
package export

import (
	"fmt"
	"math"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// Marker duration is always a single frame; the editor renders point markers.
const markerDuration = 1

// markerColors maps event kinds to DaVinci Resolve color names. Unlisted
// kinds fall back to White.
var markerColors = map[domain.EventKind]string{
	domain.EventBuzz:           "Red",
	domain.EventScoreUpdate:    "Green",
	domain.EventGameTypeChange: "Blue",
	domain.EventQuestionChange: "Yellow",
	domain.EventAnswerSubmit:   "Purple",
	domain.EventAnswerReveal:   "Orange",
	domain.EventTimerStart:     "Cyan",
	domain.EventTimerStop:      "Magenta",
}

// ColorFor returns the marker color for an event kind.
func ColorFor(kind domain.EventKind) string {
	if c, ok := markerColors[kind]; ok {
		return c
	}
	return "White"
}

// ToMarkers converts an ordered event sequence into frame-indexed markers at
// the given frame rate. Frame zero is the first event; each start frame is
// floor(elapsedMs / 1000 * fps). The fps is supplied per call so the same raw
// timestamps can be re-exported at a different rate without loss.
func ToMarkers(events []domain.Event, fps float64) []domain.Marker {
	if len(events) == 0 || fps <= 0 {
		return nil
	}
	origin := events[0].Timestamp
	markers := make([]domain.Marker, 0, len(events))
	for _, ev := range events {
		elapsed := ev.Timestamp - origin
		frame := int(math.Floor(float64(elapsed) / 1000.0 * fps))
		markers = append(markers, domain.Marker{
			Name:     string(ev.Kind),
			Color:    ColorFor(ev.Kind),
			Note:     noteFor(ev),
			Start:    frame,
			Duration: markerDuration,
		})
	}
	return markers
}

// noteFor builds the human-readable note shown in the editor's marker list.
func noteFor(ev domain.Event) string {
	p := payload(ev.Payload)
	switch ev.Kind {
	case domain.EventBuzz:
		rank := p.intVal("rank")
		return fmt.Sprintf("%s buzzed (%s)", p.str("name"), ordinal(rank))
	case domain.EventScoreUpdate:
		oldScore := p.intVal("old")
		newScore := p.intVal("new")
		return fmt.Sprintf("%s: %d → %d (%+d)", p.str("name"), oldScore, newScore, newScore-oldScore)
	case domain.EventGameTypeChange:
		return fmt.Sprintf("Game type: %s", p.str("gameType"))
	case domain.EventQuestionChange:
		return fmt.Sprintf("Q%d: %s", p.intVal("index")+1, p.str("text"))
	case domain.EventAnswerSubmit:
		return fmt.Sprintf("%s answered: %s", p.str("name"), p.str("answer"))
	case domain.EventAnswerReveal:
		return fmt.Sprintf("Answers revealed (correct: %s)", p.str("correctAnswer"))
	case domain.EventTimerStart:
		return fmt.Sprintf("Timer started (%ds)", p.intVal("duration"))
	case domain.EventTimerStop:
		return fmt.Sprintf("Timer stopped (%ds left)", p.intVal("remaining"))
	case domain.EventTimerTick:
		return fmt.Sprintf("Timer: %ds", p.intVal("remaining"))
	case domain.EventContestantAdd:
		return fmt.Sprintf("Contestant added: %s", p.str("name"))
	case domain.EventContestantRemove:
		return fmt.Sprintf("Contestant removed: %s", p.str("name"))
	case domain.EventBuzzerReset:
		return "Buzzers reset"
	case domain.EventSessionStart:
		return "Session started"
	case domain.EventSessionEnd:
		return fmt.Sprintf("Session ended (%ds)", p.intVal("durationSeconds"))
	}
	return string(ev.Kind)
}

// ordinal renders 1 -> "1st", 2 -> "2nd", 11 -> "11th" etc.
func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
		// 11th, 12th, 13th
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// payload wraps the loosely-typed event payload. Values arrive either as
// native ints (in-process) or float64 (after a JSON round-trip through the
// session log file), so numeric access has to accept both.
type payload map[string]any

func (p payload) str(key string) string {
	if p == nil {
		return ""
	}
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

func (p payload) intVal(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
