package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification mirrors a server-side notification. Created remotely, copied
// into the local feed on fetch or push-append; only the Read flag flips
// locally (optimistically) ahead of server confirmation.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Read      bool            `json:"read"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
