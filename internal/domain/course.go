package domain

import (
	"github.com/google/uuid"
)

type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Level       string    `json:"level,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Progress    float64   `json:"progress"`
	Completed   bool      `json:"completed"`
}
