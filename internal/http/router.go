package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/campusfront/campusfront/internal/http/handlers"
	httpMW "github.com/campusfront/campusfront/internal/http/middleware"
)

type RouterConfig struct {
	AuthHandler     *httpH.AuthHandler
	GuardMiddleware *httpMW.GuardMiddleware

	UserHandler         *httpH.UserHandler
	NotificationHandler *httpH.NotificationHandler
	AchievementHandler  *httpH.AchievementHandler
	CourseHandler       *httpH.CourseHandler
	LessonHandler       *httpH.LessonHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("campusfront"))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Auth (public)
	if cfg.AuthHandler != nil {
		r.POST("/sign-in", cfg.AuthHandler.SignIn)
	}

	protected := r.Group("/")
	{
		// Middleware
		if cfg.GuardMiddleware != nil {
			protected.Use(cfg.GuardMiddleware.Protect())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/sign-out", cfg.AuthHandler.SignOut)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me/profile", cfg.UserHandler.GetProfile)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/notifications", cfg.NotificationHandler.List)
			protected.GET("/notifications/unread-count", cfg.NotificationHandler.UnreadCount)
			protected.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
			protected.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
		}

		// Achievements
		if cfg.AchievementHandler != nil {
			protected.GET("/achievements", cfg.AchievementHandler.List)
			protected.GET("/achievements/categories", cfg.AchievementHandler.Categories)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.GET("/courses", cfg.CourseHandler.List)
			protected.POST("/courses/:id/celebrate", cfg.CourseHandler.Celebrate)
		}

		// Lessons
		if cfg.LessonHandler != nil {
			protected.GET("/lessons/:id", cfg.LessonHandler.Open)
			protected.POST("/lessons/:id/tasks/:taskID/submission", cfg.LessonHandler.Submit)
		}
	}

	return r
}
