package export

import (
	"encoding/xml"
	"fmt"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

type xmlMarker struct {
	Name     string `xml:"name,attr"`
	Color    string `xml:"color,attr"`
	Note     string `xml:"note,attr"`
	Start    int    `xml:"start,attr"`
	Duration int    `xml:"duration,attr"`
}

type xmlMarkerList struct {
	Markers []xmlMarker `xml:"marker"`
}

type xmlSequence struct {
	XMLName   xml.Name      `xml:"sequence"`
	Name      string        `xml:"name,attr"`
	FrameRate float64       `xml:"framerate,attr"`
	Markers   xmlMarkerList `xml:"markers"`
}

// ToTimelineXML serializes markers into the editor timeline dialect: a root
// <sequence> wrapping a <markers> list with one <marker> element per entry.
// encoding/xml handles text escaping of &<>"' in attribute values.
func ToTimelineXML(sessionID string, events []domain.Event, fps float64) ([]byte, error) {
	markers := ToMarkers(events, fps)
	seq := xmlSequence{
		Name:      sessionID,
		FrameRate: fps,
		Markers:   xmlMarkerList{Markers: make([]xmlMarker, 0, len(markers))},
	}
	for _, m := range markers {
		seq.Markers.Markers = append(seq.Markers.Markers, xmlMarker{
			Name:     m.Name,
			Color:    m.Color,
			Note:     m.Note,
			Start:    m.Start,
			Duration: m.Duration,
		})
	}

	body, err := xml.MarshalIndent(seq, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal timeline xml: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
