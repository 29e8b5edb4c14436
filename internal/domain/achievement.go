package domain

import (
	"time"

	"github.com/google/uuid"
)

type Achievement struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	IconURL     string     `json:"icon_url,omitempty"`
	XPReward    int        `json:"xp_reward"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

type AchievementCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
