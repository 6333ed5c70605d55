package export_test

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
	"github.com/randyrektor/obs-gameshow-overlay/internal/export"
)

const sessionID = "1700000000000-abcd"

func event(kind domain.EventKind, elapsedMs int64, payload map[string]any) domain.Event {
	return domain.Event{
		SessionID: sessionID,
		Kind:      kind,
		Timestamp: 1_700_000_000_000 + elapsedMs,
		Payload:   payload,
	}
}

func TestFrameMath(t *testing.T) {
	events := []domain.Event{
		event(domain.EventSessionStart, 0, nil),
		event(domain.EventBuzz, 999, map[string]any{"name": "Alice", "rank": 1}),
		event(domain.EventBuzz, 1000, map[string]any{"name": "Bob", "rank": 2}),
	}
	markers := export.ToMarkers(events, 30)
	if len(markers) != 3 {
		t.Fatalf("expected 3 markers, got %d", len(markers))
	}
	if markers[0].Start != 0 {
		t.Fatalf("first event must sit at frame 0, got %d", markers[0].Start)
	}
	if markers[1].Start != 29 {
		t.Fatalf("999ms at 30fps floors to frame 29, got %d", markers[1].Start)
	}
	if markers[2].Start != 30 {
		t.Fatalf("1000ms at 30fps is frame 30, got %d", markers[2].Start)
	}
	for _, m := range markers {
		if m.Duration != 1 {
			t.Fatalf("marker duration must be 1 frame, got %d", m.Duration)
		}
	}
}

func TestBuzzRaceFiftyMillisApart(t *testing.T) {
	events := []domain.Event{
		event(domain.EventBuzz, 0, map[string]any{"name": "A", "rank": 1}),
		event(domain.EventBuzz, 50, map[string]any{"name": "B", "rank": 2}),
	}
	markers := export.ToMarkers(events, 30)
	if markers[0].Start != 0 || markers[1].Start != 1 {
		t.Fatalf("expected frames 0 and 1, got %d and %d", markers[0].Start, markers[1].Start)
	}
}

func TestMarkerStartsAreMonotonic(t *testing.T) {
	elapsed := []int64{0, 10, 10, 333, 999, 1000, 4500, 4501, 60000}
	events := make([]domain.Event, 0, len(elapsed))
	for _, ms := range elapsed {
		events = append(events, event(domain.EventTimerTick, ms, map[string]any{"remaining": 5}))
	}
	for _, fps := range []float64{24, 25, 29.97, 30, 60} {
		markers := export.ToMarkers(events, fps)
		for i := 1; i < len(markers); i++ {
			if markers[i].Start < markers[i-1].Start {
				t.Fatalf("fps=%v: start frames decreased at %d: %d < %d", fps, i, markers[i].Start, markers[i-1].Start)
			}
		}
	}
}

func TestColorsByKind(t *testing.T) {
	want := map[domain.EventKind]string{
		domain.EventBuzz:           "Red",
		domain.EventScoreUpdate:    "Green",
		domain.EventGameTypeChange: "Blue",
		domain.EventQuestionChange: "Yellow",
		domain.EventAnswerSubmit:   "Purple",
		domain.EventAnswerReveal:   "Orange",
		domain.EventTimerStart:     "Cyan",
		domain.EventTimerStop:      "Magenta",
		domain.EventSessionStart:   "White",
		domain.EventContestantAdd:  "White",
	}
	for kind, color := range want {
		if got := export.ColorFor(kind); got != color {
			t.Fatalf("color for %s: expected %s, got %s", kind, color, got)
		}
	}
}

func TestNotes(t *testing.T) {
	cases := []struct {
		ev   domain.Event
		note string
	}{
		{event(domain.EventBuzz, 0, map[string]any{"name": "Alice", "rank": 1}), "Alice buzzed (1st)"},
		{event(domain.EventBuzz, 0, map[string]any{"name": "Bob", "rank": 2}), "Bob buzzed (2nd)"},
		{event(domain.EventBuzz, 0, map[string]any{"name": "Carol", "rank": 3}), "Carol buzzed (3rd)"},
		{event(domain.EventBuzz, 0, map[string]any{"name": "Dave", "rank": 11}), "Dave buzzed (11th)"},
		{event(domain.EventScoreUpdate, 0, map[string]any{"name": "Alice", "old": 5, "new": 8}), "Alice: 5 → 8 (+3)"},
		{event(domain.EventScoreUpdate, 0, map[string]any{"name": "Bob", "old": 8, "new": 0}), "Bob: 8 → 0 (-8)"},
		{event(domain.EventTimerStart, 0, map[string]any{"duration": 60}), "Timer started (60s)"},
		{event(domain.EventGameTypeChange, 0, map[string]any{"gameType": "buzzer"}), "Game type: buzzer"},
	}
	for _, tc := range cases {
		markers := export.ToMarkers([]domain.Event{tc.ev}, 30)
		if markers[0].Note != tc.note {
			t.Fatalf("note for %s: expected %q, got %q", tc.ev.Kind, tc.note, markers[0].Note)
		}
	}
}

func TestNotesSurviveJSONRoundTrip(t *testing.T) {
	// Events reloaded from a session file carry float64 numerics.
	original := event(domain.EventScoreUpdate, 0, map[string]any{"name": "Alice", "old": 5, "new": 8})
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var reloaded domain.Event
	if err := json.Unmarshal(raw, &reloaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	markers := export.ToMarkers([]domain.Event{reloaded}, 30)
	if markers[0].Note != "Alice: 5 → 8 (+3)" {
		t.Fatalf("reloaded note mangled: %q", markers[0].Note)
	}
}

func TestTimelineXML(t *testing.T) {
	events := []domain.Event{
		event(domain.EventAnswerSubmit, 0, map[string]any{"name": "Alice", "answer": `<b>"bold" & 'brash'</b>`}),
		event(domain.EventBuzz, 2000, map[string]any{"name": "Bob", "rank": 1}),
	}
	body, err := export.ToTimelineXML(sessionID, events, 25)
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	out := string(body)

	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("missing xml header: %q", out[:20])
	}
	if !strings.Contains(out, `<sequence name="`+sessionID+`"`) {
		t.Fatalf("missing sequence wrapper: %s", out)
	}
	if !strings.Contains(out, "<markers>") || strings.Count(out, "<marker ") != 2 {
		t.Fatalf("unexpected marker list: %s", out)
	}
	if !strings.Contains(out, `start="50"`) {
		t.Fatalf("expected frame 50 at 25fps: %s", out)
	}
	if strings.Contains(out, `<b>`) {
		t.Fatalf("markup not escaped: %s", out)
	}
	for _, escaped := range []string{"&lt;", "&gt;", "&amp;", "&#34;", "&#39;"} {
		if !strings.Contains(out, escaped) {
			t.Fatalf("expected %s in escaped note: %s", escaped, out)
		}
	}
}

func TestCSVRowsPerRawEvent(t *testing.T) {
	events := []domain.Event{
		event(domain.EventSessionStart, 0, nil),
		event(domain.EventBuzz, 50, map[string]any{"name": "A, \"quoted\"", "rank": 1}),
	}
	body, err := export.ToCSV(events)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus one row per event, got %d rows", len(rows))
	}
	header := rows[0]
	if header[0] != "timestamp" || header[1] != "kind" || header[2] != "payload" || header[3] != "sessionId" {
		t.Fatalf("unexpected header: %v", header)
	}
	if rows[1][1] != string(domain.EventSessionStart) || rows[1][3] != sessionID {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if !strings.HasPrefix(rows[1][0], "2023-11-14T") {
		t.Fatalf("expected ISO timestamp, got %q", rows[1][0])
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(rows[2][2]), &payload); err != nil {
		t.Fatalf("payload column is not JSON: %v", err)
	}
	if payload["name"] != "A, \"quoted\"" {
		t.Fatalf("payload mangled: %v", payload)
	}
}

func TestMarkersJSONShape(t *testing.T) {
	body, err := export.MarkersJSON([]domain.Event{event(domain.EventBuzz, 0, map[string]any{"name": "Alice", "rank": 1})}, 30)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var markers []map[string]any
	if err := json.Unmarshal(body, &markers); err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := markers[0]
	for _, key := range []string{"name", "color", "note", "start", "duration"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("marker missing %q: %v", key, m)
		}
	}
}

func TestEmptyAndInvalidInput(t *testing.T) {
	if got := export.ToMarkers(nil, 30); got != nil {
		t.Fatalf("expected nil markers for no events, got %v", got)
	}
	if got := export.ToMarkers([]domain.Event{event(domain.EventBuzz, 0, nil)}, 0); got != nil {
		t.Fatalf("expected nil markers for fps=0, got %v", got)
	}
}
