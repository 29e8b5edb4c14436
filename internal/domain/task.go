package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Task is one exercise inside a lesson. Boilerplate is the starter answer a
// fresh submission record is seeded with.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	LessonID    uuid.UUID       `json:"lesson_id"`
	Title       string          `json:"title"`
	Kind        string          `json:"kind,omitempty"`
	Boilerplate json.RawMessage `json:"boilerplate,omitempty"`
}
