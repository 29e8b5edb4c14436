package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/http/response"
	"github.com/campusfront/campusfront/internal/notifications"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
)

type NotificationHandler struct {
	feed *notifications.Feed
}

func NewNotificationHandler(feed *notifications.Feed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List loads one more page into the append-mode mirror and serves the full
// accumulated snapshot.
func (nh *NotificationHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if err := nh.feed.LoadPage(c.Request.Context(), page); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionUnresolved) {
			response.RespondError(c, http.StatusServiceUnavailable, "session_pending", err)
			return
		}
		response.RespondError(c, http.StatusBadGateway, "fetch_failed", err)
		return
	}
	snap := nh.feed.Snapshot()
	response.RespondOK(c, gin.H{
		"items":        snap.Items,
		"page_number":  snap.PageNumber,
		"total_pages":  snap.TotalPages,
		"unread_count": nh.feed.Unread(),
	})
}

func (nh *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := nh.feed.MarkRead(c.Request.Context(), id); err != nil {
		response.RespondError(c, http.StatusBadGateway, "mark_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"unread_count": nh.feed.Unread()})
}

func (nh *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := nh.feed.MarkAllRead(c.Request.Context()); err != nil {
		response.RespondError(c, http.StatusBadGateway, "mark_all_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"unread_count": nh.feed.Unread()})
}

func (nh *NotificationHandler) UnreadCount(c *gin.Context) {
	response.RespondOK(c, gin.H{"unread_count": nh.feed.Unread()})
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
