package surface

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// FrameStruct converts a frame into a protobuf Struct, the shape both the
// WebSocket and gRPC surfaces send.
func FrameStruct(f model.Frame) (*structpb.Struct, error) {
	return structpb.NewStruct(frameMap(f))
}

// EventStruct converts an event into a protobuf Struct.
func EventStruct(e Event) (*structpb.Struct, error) {
	m := map[string]any{
		"kind": e.Kind,
		"at":   e.At.UTC().Format(time.RFC3339Nano),
	}
	switch e.Kind {
	case KindFrame:
		if e.Frame == nil {
			return nil, fmt.Errorf("frame event without frame")
		}
		m["frame"] = frameMap(*e.Frame)
	case KindCamera:
		if e.Region == nil {
			return nil, fmt.Errorf("camera event without region")
		}
		m["region"] = regionMap(*e.Region)
		m["durationMs"] = e.Duration.Milliseconds()
	case KindNotice:
		m["notice"] = e.Notice
	case KindRoute:
		m["route"] = e.Route
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return structpb.NewStruct(m)
}

// MarshalEvent encodes an event as protojson.
func MarshalEvent(e Event) ([]byte, error) {
	s, err := EventStruct(e)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

func frameMap(f model.Frame) map[string]any {
	markers := make([]any, len(f.Markers))
	for i, m := range f.Markers {
		markers[i] = map[string]any{
			"id":          m.ID,
			"title":       m.Title,
			"description": m.Description,
			"coordinate":  pointMap(m.Coordinate),
		}
	}
	panel := make([]any, len(f.Panel))
	for i, line := range f.Panel {
		panel[i] = line
	}
	return map[string]any{
		"sessionId":    f.SessionID,
		"step":         f.Step,
		"userLocation": pointMap(f.UserLocation),
		"markers":      markers,
		"panel":        panel,
		"publishedAt":  f.PublishedAt.UTC().Format(time.RFC3339Nano),
	}
}

func regionMap(r model.Region) map[string]any {
	return map[string]any{
		"center":         pointMap(r.Center),
		"latitudeDelta":  r.LatitudeDelta,
		"longitudeDelta": r.LongitudeDelta,
	}
}

func pointMap(p model.LocationPoint) map[string]any {
	return map[string]any{
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
	}
}

// FrameFromStruct decodes what FrameStruct produced. Numbers travel as
// float64, so IDs and steps are truncated back to integers.
func FrameFromStruct(s *structpb.Struct) (model.Frame, error) {
	if s == nil {
		return model.Frame{}, fmt.Errorf("nil frame")
	}
	m := s.AsMap()
	f := model.Frame{
		SessionID:    stringOf(m["sessionId"]),
		Step:         uint64(floatOf(m["step"])),
		UserLocation: pointOf(m["userLocation"]),
	}
	if ts := stringOf(m["publishedAt"]); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return model.Frame{}, fmt.Errorf("publishedAt: %w", err)
		}
		f.PublishedAt = t
	}
	if list, ok := m["markers"].([]any); ok {
		for _, raw := range list {
			mm, _ := raw.(map[string]any)
			f.Markers = append(f.Markers, model.MarkerDescriptor{
				ID:          int(floatOf(mm["id"])),
				Title:       stringOf(mm["title"]),
				Description: stringOf(mm["description"]),
				Coordinate:  pointOf(mm["coordinate"]),
			})
		}
	}
	if list, ok := m["panel"].([]any); ok {
		for _, raw := range list {
			f.Panel = append(f.Panel, stringOf(raw))
		}
	}
	return f, nil
}

func pointOf(v any) model.LocationPoint {
	m, _ := v.(map[string]any)
	return model.LocationPoint{
		Latitude:  floatOf(m["latitude"]),
		Longitude: floatOf(m["longitude"]),
	}
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
