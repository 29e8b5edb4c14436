package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/campusfront/campusfront/internal/achievements"
	"github.com/campusfront/campusfront/internal/api"
	"github.com/campusfront/campusfront/internal/app"
	"github.com/campusfront/campusfront/internal/catalog"
	"github.com/campusfront/campusfront/internal/data/db"
	"github.com/campusfront/campusfront/internal/data/repos"
	"github.com/campusfront/campusfront/internal/guard"
	appHTTP "github.com/campusfront/campusfront/internal/http"
	httpH "github.com/campusfront/campusfront/internal/http/handlers"
	httpMW "github.com/campusfront/campusfront/internal/http/middleware"
	"github.com/campusfront/campusfront/internal/lessons"
	"github.com/campusfront/campusfront/internal/notifications"
	"github.com/campusfront/campusfront/internal/observability"
	"github.com/campusfront/campusfront/internal/platform/logger"
	"github.com/campusfront/campusfront/internal/realtime/bus"
	"github.com/campusfront/campusfront/internal/session"
)

func main() {
	cfg := app.Load()

	// Logger
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "campusfront",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	if shutdownOtel != nil {
		defer func() { _ = shutdownOtel(ctx) }()
	}

	// Local state DB
	stateDB, err := db.NewStateDB(log)
	if err != nil {
		log.Fatal("State DB init failed", "error", err)
	}
	if err = stateDB.AutoMigrateAll(); err != nil {
		log.Fatal("State DB migration failed", "error", err)
	}
	theDB := stateDB.DB()

	// Repos
	log.Info("Setting up repos from main...")
	credentialRepo := repos.NewCredentialRepo(theDB, log)
	submissionRepo := repos.NewSubmissionRepo(theDB, log)
	celebrationRepo := repos.NewCelebrationRepo(theDB, log)
	counterRepo := repos.NewCounterRepo(theDB, log)

	// Session
	log.Info("Setting up session from main...")
	tokens := session.NewTokenStore(credentialRepo, log)
	client, err := api.NewFromEnv(tokens)
	if err != nil {
		log.Fatal("Platform API client init failed", "error", err)
	}
	sessionController := session.NewController(tokens, client, log)
	client.SetRefresher(sessionController)

	// Route guard
	policies := guard.DefaultPolicies()
	if cfg.GuardPolicyPath != "" {
		policies, err = guard.LoadPolicies(cfg.GuardPolicyPath)
		if err != nil {
			log.Fatal("Route policy load failed", "error", err)
		}
	}
	routeGuard := guard.New(policies, "/sign-in", "/", log)

	// Feature stores
	log.Info("Setting up feature stores from main...")
	feed := notifications.NewFeed(client, sessionController, counterRepo, log)
	board := achievements.NewBoard(client, sessionController, log)
	courseCatalog := catalog.NewCatalog(client, sessionController, celebrationRepo, log)
	submissionStore := lessons.NewStore(client, sessionController, submissionRepo, log)

	// Teardown: one user's mirrors must not survive into the next sign-in.
	sessionController.OnSessionEnd(feed.Reset)
	sessionController.OnSessionEnd(board.Reset)
	sessionController.OnSessionEnd(courseCatalog.Reset)
	sessionController.OnSessionEnd(submissionStore.Reset)

	// Warmup: resolve the session once and restore persisted counters.
	warm, warmCtx := errgroup.WithContext(ctx)
	warm.Go(func() error {
		_, err := sessionController.Resolve(warmCtx)
		return err
	})
	warm.Go(func() error {
		return feed.Hydrate(warmCtx)
	})
	if err := warm.Wait(); err != nil {
		log.Warn("Startup warmup incomplete", "error", err)
	}
	if sessionController.IsAuthenticated() {
		if err := feed.RefreshUnread(ctx); err != nil {
			log.Warn("Unread counter refresh failed", "error", err)
		}
	}

	// Push bus (optional)
	if cfg.RedisAddr != "" {
		pushBus, err := bus.NewRedisBus(bus.Options{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel}, log)
		if err != nil {
			log.Warn("Push bus init failed, running fetch-only", "error", err)
		} else {
			defer pushBus.Close()
			if err := feed.StartPush(ctx, pushBus); err != nil {
				log.Warn("Push forwarder start failed", "error", err)
			}
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := httpH.NewHealthHandler()
	authHandler := httpH.NewAuthHandler(sessionController)
	userHandler := httpH.NewUserHandler(sessionController)
	notificationHandler := httpH.NewNotificationHandler(feed)
	achievementHandler := httpH.NewAchievementHandler(board)
	courseHandler := httpH.NewCourseHandler(courseCatalog)
	lessonHandler := httpH.NewLessonHandler(submissionStore)

	// Middleware
	guardMiddleware := httpMW.NewGuardMiddleware(log, routeGuard, sessionController)

	// Router
	log.Info("Setting up router from main...")
	server := appHTTP.NewServer(appHTTP.RouterConfig{
		AuthHandler:         authHandler,
		GuardMiddleware:     guardMiddleware,
		UserHandler:         userHandler,
		NotificationHandler: notificationHandler,
		AchievementHandler:  achievementHandler,
		CourseHandler:       courseHandler,
		LessonHandler:       lessonHandler,
		HealthHandler:       healthHandler,
	})

	log.Info("Starting server", "addr", cfg.Addr)
	if err := server.Run(cfg.Addr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
