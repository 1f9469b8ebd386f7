package stream

import (
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

// EncodeEvent flattens an event into stream fields.
func EncodeEvent(ev models.FileEvent) map[string]interface{} {
	return map[string]interface{}{
		"type":   string(ev.Type),
		"fileId": ev.FileID,
		"hash":   ev.Hash,
		"at":     ev.At.UTC().Format(time.RFC3339Nano),
	}
}

// ParseEvent rebuilds an event from the fields of one stream entry.
func ParseEvent(fields map[string]string) (models.FileEvent, error) {
	ev := models.FileEvent{
		Type:   models.FileEventType(fields["type"]),
		FileID: fields["fileId"],
		Hash:   fields["hash"],
	}
	switch ev.Type {
	case models.FileUploaded, models.FileDeleted:
	default:
		return models.FileEvent{}, fmt.Errorf("unknown event type %q", fields["type"])
	}
	if ev.FileID == "" {
		return models.FileEvent{}, fmt.Errorf("event without fileId")
	}
	if raw := fields["at"]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return models.FileEvent{}, fmt.Errorf("invalid event time %q: %w", raw, err)
		}
		ev.At = at
	}
	return ev, nil
}
