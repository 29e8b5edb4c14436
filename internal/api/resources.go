package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/domain"
)

// ---- Session lifecycle ----

func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var out TokenPair
	req := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", false, req, &out); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return TokenPair{}, errors.New("login response missing access_token")
	}
	return out, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrNoRefreshToken
	}
	var out TokenPair
	req := refreshRequest{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh-token", false, req, &out); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return TokenPair{}, errors.New("refresh response missing access_token")
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session server-side. Local state is dropped by the
// caller regardless of the outcome here.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
}

// ---- Notifications ----

func (c *Client) ListNotifications(ctx context.Context, page, size int, filter url.Values) (NotificationPage, error) {
	var out NotificationPage
	err := c.doJSON(ctx, http.MethodGet, pageQuery("/notifications", page, size, filter), true, nil, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/notifications/%s/read", id), true, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	var out markAllReadResponse
	return c.doJSON(ctx, http.MethodPost, "/notifications/read-all", true, nil, &out)
}

func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var out unreadCountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", true, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// ---- Achievements ----

func (c *Client) ListAchievements(ctx context.Context, page, size int, filter url.Values) (AchievementPage, error) {
	var out AchievementPage
	err := c.doJSON(ctx, http.MethodGet, pageQuery("/achievements", page, size, filter), true, nil, &out)
	return out, err
}

func (c *Client) AchievementCategories(ctx context.Context) ([]domain.AchievementCategory, error) {
	var out []domain.AchievementCategory
	if err := c.doJSON(ctx, http.MethodGet, "/achievements/categories", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Course catalog ----

func (c *Client) ListCourses(ctx context.Context, page, size int, filter url.Values) (CoursePage, error) {
	var out CoursePage
	err := c.doJSON(ctx, http.MethodGet, pageQuery("/courses", page, size, filter), true, nil, &out)
	return out, err
}

// ---- Lesson tasks ----

func (c *Client) ListLessonTasks(ctx context.Context, lessonID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	path := fmt.Sprintf("/lessons/%s/tasks", lessonID)
	if err := c.doJSON(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitTask grades one task attempt. The server answers with the full graded
// Submission, which replaces the local record wholesale.
func (c *Client) SubmitTask(ctx context.Context, lessonID, taskID uuid.UUID, answer json.RawMessage) (domain.Submission, error) {
	var out domain.Submission
	req := submitTaskRequest{TaskID: taskID, Answer: answer}
	path := fmt.Sprintf("/lessons/%s/tasks/%s/submission", lessonID, taskID)
	if err := c.doJSON(ctx, http.MethodPost, path, true, req, &out); err != nil {
		return domain.Submission{}, err
	}
	return out, nil
}
