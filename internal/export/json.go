package export

import (
	"encoding/json"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// MarkersJSON renders the marker list as the JSON array the Resolve import
// helper consumes.
func MarkersJSON(events []domain.Event, fps float64) ([]byte, error) {
	markers := ToMarkers(events, fps)
	if markers == nil {
		markers = []domain.Marker{}
	}
	return json.MarshalIndent(markers, "", "  ")
}
