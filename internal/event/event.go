package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLogin             Type = "auth.login"
	TypeLoginFailed       Type = "auth.login_failed"
	TypeProfileLoaded     Type = "auth.profile_loaded"
	TypeProfileLoadFailed Type = "auth.profile_load_failed"
	TypeLogout            Type = "auth.logout"
	TypeProfileUpdated    Type = "profile.updated"
	TypeProfileFailed     Type = "profile.update_failed"
	TypePhotoUpdated      Type = "photo.updated"
	TypePhotoFailed       Type = "photo.update_failed"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
	SessionID string      `json:"session_id,omitempty"` // Browser session that caused the transition
}

// Failure is the payload of the *_failed events.
type Failure struct {
	Message string `json:"message"`
}

func New(t Type, sessionID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
