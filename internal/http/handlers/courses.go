package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusfront/campusfront/internal/catalog"
	"github.com/campusfront/campusfront/internal/http/response"
	pkgerrors "github.com/campusfront/campusfront/internal/pkg/errors"
)

type CourseHandler struct {
	catalog *catalog.Catalog
}

func NewCourseHandler(cat *catalog.Catalog) *CourseHandler {
	return &CourseHandler{catalog: cat}
}

func (ch *CourseHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if err := ch.catalog.LoadPage(c.Request.Context(), page, c.Request.URL.Query()); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionUnresolved) {
			response.RespondError(c, http.StatusServiceUnavailable, "session_pending", err)
			return
		}
		response.RespondError(c, http.StatusBadGateway, "fetch_failed", err)
		return
	}
	snap := ch.catalog.Snapshot()
	response.RespondOK(c, gin.H{
		"items":       snap.Items,
		"page_number": snap.PageNumber,
		"total_pages": snap.TotalPages,
	})
}

// Celebrate reports whether the completion celebration for a course should be
// shown. The first call for a course answers true and burns the mark; every
// later call answers false.
func (ch *CourseHandler) Celebrate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	show, err := ch.catalog.ShouldCelebrate(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "celebration_check_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"celebrate": show})
}
