package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfront/campusfront/internal/guard"
	"github.com/campusfront/campusfront/internal/http/response"
	"github.com/campusfront/campusfront/internal/session"
)

type AuthHandler struct {
	session *session.Controller
}

func NewAuthHandler(sc *session.Controller) *AuthHandler {
	return &AuthHandler{session: sc}
}

// SignIn exchanges credentials for a session. The response carries the
// decoded `from` return target so the caller can land back where it was
// bounced from; an absent or unsafe target falls back to "/".
func (ah *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	user, err := ah.session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}

	target := guard.ReturnTarget(c.Request.URL.RawQuery)
	if target == "" {
		target = "/"
	}
	response.RespondOK(c, gin.H{
		"user":      user,
		"return_to": target,
	})
}

func (ah *AuthHandler) SignOut(c *gin.Context) {
	if err := ah.session.Logout(c.Request.Context()); err != nil {
		response.RespondError(c, http.StatusBadRequest, "logout_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
