package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfront/campusfront/internal/http/response"
	"github.com/campusfront/campusfront/internal/session"
)

type UserHandler struct {
	session *session.Controller
}

func NewUserHandler(sc *session.Controller) *UserHandler {
	return &UserHandler{session: sc}
}

// GetProfile serves the locally mirrored user. The mirror is never
// authoritative; a nil mirror on an authenticated session means the profile
// fetch is still outstanding.
func (uh *UserHandler) GetProfile(c *gin.Context) {
	user := uh.session.CurrentUser()
	if user == nil {
		response.RespondError(c, http.StatusNotFound, "profile_unavailable", errors.New("profile not loaded yet"))
		return
	}
	response.RespondOK(c, user)
}
