package realtime

import "encoding/json"

const (
	// MessageNotificationCreated carries a domain.Notification payload; the
	// feed appends it to the local mirror (push-append).
	MessageNotificationCreated = "notification.created"
)

// Message is one push event from the platform.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
