package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOverrideChanged = "override.changed"
)

const (
	OverrideCreated     = "created"
	OverrideDeactivated = "deactivated"
	OverrideExpired     = "expired"
)

// OverrideChangedEvent is published whenever a user's effective overrides
// change, so that cached grants for that user can be dropped.
type OverrideChangedEvent struct {
	BaseEvent
	UserID     int64  `json:"user_id"`
	OverrideID int64  `json:"override_id"`
	Change     string `json:"change"`
}

func NewOverrideChangedEvent(userID, overrideID int64, change string) *OverrideChangedEvent {
	return &OverrideChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOverrideChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":     userID,
				"override_id": overrideID,
				"change":      change,
			},
		},
		UserID:     userID,
		OverrideID: overrideID,
		Change:     change,
	}
}

// UserIDFromEvent extracts the affected user from an override event, whether
// it arrives typed or as a BaseEvent with a data map.
func UserIDFromEvent(event Event) (int64, bool) {
	switch e := event.(type) {
	case *OverrideChangedEvent:
		return e.UserID, true
	case OverrideChangedEvent:
		return e.UserID, true
	}
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := data["user_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
