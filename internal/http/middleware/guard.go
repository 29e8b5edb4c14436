package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusfront/campusfront/internal/guard"
	"github.com/campusfront/campusfront/internal/platform/logger"
)

// GuardSession is guard.Session plus the ability to block until session
// resolution finished, so a request arriving mid-resolution waits instead of
// bouncing to sign-in.
type GuardSession interface {
	guard.Session
	WaitResolved(ctx context.Context) error
}

type GuardMiddleware struct {
	log   *logger.Logger
	guard *guard.Guard
	sess  GuardSession
}

func NewGuardMiddleware(log *logger.Logger, g *guard.Guard, sess GuardSession) *GuardMiddleware {
	middlewareLogger := log.With("Middleware", "GuardMiddleware")
	return &GuardMiddleware{log: middlewareLogger, guard: g, sess: sess}
}

// Protect evaluates the route guard for every request. Redirects are 303 with
// no-store so an auth-dependent bounce is never cached.
func (gm *GuardMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		action := gm.guard.Evaluate(gm.sess, c.Request.URL.Path)

		if action.Kind == guard.ActionPending {
			if err := gm.sess.WaitResolved(c.Request.Context()); err != nil {
				c.Header("Cache-Control", "no-store")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": gin.H{"message": "session resolution timed out", "code": "session_pending"},
				})
				return
			}
			action = gm.guard.Evaluate(gm.sess, c.Request.URL.Path)
		}

		switch action.Kind {
		case guard.ActionAllow:
			c.Next()
		case guard.ActionRedirectSignIn, guard.ActionRedirectHome:
			gm.log.Debug("guard redirect", "path", c.Request.URL.Path, "target", action.Target)
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusSeeOther, action.Target)
			c.Abort()
		default:
			c.Header("Cache-Control", "no-store")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{"message": "session resolution pending", "code": "session_pending"},
			})
		}
	}
}
