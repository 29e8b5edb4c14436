package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfront/campusfront/internal/achievements"
	"github.com/campusfront/campusfront/internal/http/response"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
)

type AchievementHandler struct {
	board *achievements.Board
}

func NewAchievementHandler(board *achievements.Board) *AchievementHandler {
	return &AchievementHandler{board: board}
}

func (ah *AchievementHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	category := c.Query("category")
	if err := ah.board.LoadPage(c.Request.Context(), page, category); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionUnresolved) {
			response.RespondError(c, http.StatusServiceUnavailable, "session_pending", err)
			return
		}
		response.RespondError(c, http.StatusBadGateway, "fetch_failed", err)
		return
	}
	snap := ah.board.Snapshot()
	response.RespondOK(c, gin.H{
		"items":       snap.Items,
		"page_number": snap.PageNumber,
		"total_pages": snap.TotalPages,
	})
}

func (ah *AchievementHandler) Categories(c *gin.Context) {
	cats, err := ah.board.Categories(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "fetch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"categories": cats})
}
