package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionCorrect   SubmissionStatus = "CORRECT"
	SubmissionIncorrect SubmissionStatus = "INCORRECT"
	SubmissionError     SubmissionStatus = "ERROR"
)

// Submission is a lesson-task attempt keyed by (LessonID, TaskID). A record is
// created locally in PENDING with a boilerplate answer when the lesson's tasks
// first load, and is replaced wholesale when the server returns a graded
// result. Records are never partially merged.
type Submission struct {
	ID          uuid.UUID        `json:"id"`
	LessonID    uuid.UUID        `json:"lesson_id"`
	TaskID      uuid.UUID        `json:"task_id"`
	Status      SubmissionStatus `json:"status"`
	Answer      json.RawMessage  `json:"answer,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
}
