package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recognition-backend/internal/config"
	"recognition-backend/internal/database"
	"recognition-backend/internal/handlers"
	"recognition-backend/internal/inference"
	"recognition-backend/internal/logging"
	"recognition-backend/internal/media"
	"recognition-backend/internal/middleware"
	"recognition-backend/internal/repository"
	"recognition-backend/internal/router"
	"recognition-backend/internal/services"
	"recognition-backend/internal/websocket"
	"recognition-backend/internal/worker"
)

const jobTimeout = 5 * time.Minute

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.Init(cfg.LogLevel)
	slog.Info("🚀 Starting Recognition Backend...")
	slog.Info("✓ Environment variables loaded", slog.String("env", cfg.Env))

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		fatal("✗ PostgreSQL connection failed", err)
	}
	defer pool.Close()
	slog.Info("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL, cfg.WorkerCount)
	if err != nil {
		fatal("✗ Redis connection failed", err)
	}
	defer redisClients.Close()
	slog.Info("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		fatal("✗ Database migration failed", err)
	}
	slog.Info("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	historyRepo := repository.NewHistoryRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Recognition Pipeline ────
	classifier := inference.NewLazy(classifierFactory(cfg))
	slog.Info("✓ Inference classifier configured", slog.String("backend", cfg.InferenceBackend))

	videos := newVideoFetcher(cfg)

	var decoder media.FrameDecoder
	if ffmpeg, err := media.NewFFmpegDecoder(cfg.FFmpegPath); err != nil {
		slog.Warn("⚠ ffmpeg not found, video analysis disabled", slog.Any("error", err))
	} else {
		decoder = ffmpeg
		slog.Info("✓ ffmpeg frame decoder ready")
	}

	analyzer, err := media.NewAnalyzer(
		media.NewFetcher(cfg.FetchTimeout, videos),
		classifier,
		media.NewVideoAnalyzer(decoder, classifier),
		media.NewPDFTextExtractor(),
	)
	if err != nil {
		fatal("✗ Analyzer initialization failed", err)
	}
	slog.Info("✓ Media analyzer initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	tokenStore := services.NewRedisTokenStore(redisClients.Queue)
	authService := services.NewAuthService(userRepo, tokenStore, jwtAuth, cfg.RefreshTokenTTL, cfg.AllowAdminSignup)
	jwtAuth.SetRevocationChecker(authService)

	jobQueue := services.NewRedisJobQueue(redisClients.Queue)
	publisher := services.NewRedisPublisher(redisClients.Queue)
	predictionService := services.NewPredictionService(analyzer, historyRepo, jobRepo, jobQueue, services.VideoDefaults{
		SampleEvery: cfg.VideoSampleEvery,
		MaxSamples:  cfg.VideoMaxSamples,
	})

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Predict:   handlers.NewPredictHandler(predictionService),
		History:   handlers.NewHistoryHandler(historyRepo),
		Dashboard: handlers.NewDashboardHandler(historyRepo),
		Admin:     handlers.NewAdminHandler(userRepo),
		Job:       handlers.NewJobHandler(jobRepo),
	}

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, predictionService, jobRepo, jobQueue, publisher, cfg.WorkerCount, jobTimeout)
	workerPool.Start()
	slog.Info("✓ Worker pool started", slog.Int("goroutines", cfg.WorkerCount))

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, authService)
	slog.Info("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(jwtAuth, h, wsHub, cfg.FrontendURL),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: jobTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		wsHub.Close()
		workerPool.Stop()
	}()

	slog.Info("✓ Recognition Backend ready",
		slog.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		slog.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		fatal("Server error", err)
	}
}

func classifierFactory(cfg *config.Config) inference.Factory {
	switch cfg.InferenceBackend {
	case "gemini":
		return func() (inference.Classifier, error) {
			return inference.NewGeminiClassifier(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		}
	default:
		return func() (inference.Classifier, error) {
			return inference.NewHTTPClassifier(cfg.InferenceURL, cfg.InferenceToken, cfg.InferenceTimeout)
		}
	}
}

// newVideoFetcher prefers yt-dlp and falls back to the native YouTube client.
func newVideoFetcher(cfg *config.Config) media.VideoFetcher {
	if cfg.YouTubeDownloader != "native" {
		ytdlp, err := media.NewYtDlpFetcher(cfg.YtDlpPath)
		if err == nil {
			slog.Info("✓ yt-dlp video fetcher ready")
			return ytdlp
		}
		slog.Warn("⚠ yt-dlp not found, using native YouTube client", slog.Any("error", err))
	}
	slog.Info("✓ Native YouTube fetcher ready")
	return media.NewNativeYouTubeFetcher(nil)
}
