package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/domain"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type submitTaskRequest struct {
	TaskID uuid.UUID       `json:"task_id"`
	Answer json.RawMessage `json:"answer"`
}

// NotificationPage mirrors the server's paged list envelope. All paged
// endpoints share this shape with different item types.
type NotificationPage struct {
	Items      []domain.Notification `json:"items"`
	PageNumber int                   `json:"page_number"`
	TotalPages int                   `json:"total_pages"`
}

type AchievementPage struct {
	Items      []domain.Achievement `json:"items"`
	PageNumber int                  `json:"page_number"`
	TotalPages int                  `json:"total_pages"`
}

type CoursePage struct {
	Items      []domain.Course `json:"items"`
	PageNumber int             `json:"page_number"`
	TotalPages int             `json:"total_pages"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

type markAllReadResponse struct {
	Updated int       `json:"updated"`
	At      time.Time `json:"at"`
}
