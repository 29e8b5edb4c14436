package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Credential is the single persisted row of the token store: the long-lived
// refresh token survives restarts, the access token never touches disk.
type Credential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id"`
	RefreshToken string    `gorm:"column:refresh_token;not null" json:"refresh_token"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Credential) TableName() string { return "credential" }

// TaskSubmissionRecord is the durable mirror of a Submission, keyed by
// lesson+task so a reload restores in-progress lesson state.
type TaskSubmissionRecord struct {
	LessonID     uuid.UUID      `gorm:"type:uuid;primaryKey;column:lesson_id" json:"lesson_id"`
	TaskID       uuid.UUID      `gorm:"type:uuid;primaryKey;column:task_id" json:"task_id"`
	SubmissionID uuid.UUID      `gorm:"type:uuid;column:submission_id" json:"submission_id"`
	Status       string         `gorm:"column:status;not null" json:"status"`
	Answer       datatypes.JSON `gorm:"column:answer" json:"answer,omitempty"`
	SubmittedAt  time.Time      `gorm:"column:submitted_at" json:"submitted_at"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (TaskSubmissionRecord) TableName() string { return "task_submission" }

// CelebrationMark records a course whose completion celebration has already
// been shown, so the celebration never replays for the same course.
type CelebrationMark struct {
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;column:course_id" json:"course_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CelebrationMark) TableName() string { return "celebration_mark" }

// Counter holds small named integers that should survive a reload, currently
// just the unread-notification count.
type Counter struct {
	Name      string    `gorm:"primaryKey;column:name" json:"name"`
	Value     int       `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Counter) TableName() string { return "counter" }

const CounterUnreadNotifications = "unread_notifications"
