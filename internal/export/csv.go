package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

const csvTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ToCSV serializes the raw event sequence, one row per event (not per
// marker): ISO timestamp, kind, JSON-encoded payload, session id. The raw
// dump keeps full fidelity for spreadsheet analysis, unlike the frame-rounded
// marker formats.
func ToCSV(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "kind", "payload", "sessionId"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		payload := "{}"
		if ev.Payload != nil {
			raw, err := json.Marshal(ev.Payload)
			if err != nil {
				return nil, fmt.Errorf("marshal payload for %s: %w", ev.Kind, err)
			}
			payload = string(raw)
		}
		row := []string{
			time.UnixMilli(ev.Timestamp).UTC().Format(csvTimeLayout),
			string(ev.Kind),
			payload,
			ev.SessionID,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
