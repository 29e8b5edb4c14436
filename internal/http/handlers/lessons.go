package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/http/response"
	"github.com/campusfront/campusfront/internal/lessons"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
)

type LessonHandler struct {
	store *lessons.Store
}

func NewLessonHandler(store *lessons.Store) *LessonHandler {
	return &LessonHandler{store: store}
}

// Open initializes the lesson's submission records and serves them.
func (lh *LessonHandler) Open(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := lh.store.InitLesson(c.Request.Context(), lessonID); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionUnresolved) {
			response.RespondError(c, http.StatusServiceUnavailable, "session_pending", err)
			return
		}
		response.RespondError(c, http.StatusBadGateway, "lesson_init_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": lh.store.LessonSubmissions(lessonID)})
}

func (lh *LessonHandler) Submit(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		Answer json.RawMessage `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	graded, err := lh.store.Submit(c.Request.Context(), lessonID, taskID, req.Answer)
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "submission_failed", err)
		return
	}
	response.RespondOK(c, graded)
}
