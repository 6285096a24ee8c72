// Simtutor - Adaptive Simulation Tutoring Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/simtutor/internal/api"
	"github.com/ashureev/simtutor/internal/config"
	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/middleware"
	"github.com/ashureev/simtutor/internal/session"
	"github.com/ashureev/simtutor/internal/simulation"
	"github.com/ashureev/simtutor/internal/store"
	"github.com/ashureev/simtutor/internal/teaching"
	"github.com/ashureev/simtutor/web"
)

const cleanupInterval = 15 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.GeminiModel, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	catalog, err := simulation.LoadCatalog()
	if err != nil {
		slog.Error("Failed to load simulation catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Simulation catalog loaded", "simulations", catalog.IDs())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gen, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout, cfg.LLMMaxRetries)
	if err != nil {
		slog.Error("Failed to initialize text-generation client", "error", err)
		os.Exit(1)
	}
	slog.Info("Text-generation client initialized", "model", gen.Model())

	// Initialize services.
	pipeline := teaching.New(gen, teaching.Config{
		MaxExchanges:    cfg.MaxExchanges,
		ScaffoldTrigger: cfg.ScaffoldTrigger,
		Temperature:     cfg.Temperature,
	})
	svc := session.NewService(repo, pipeline, catalog, cfg.SimulationBaseURL)

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, catalog, cfg.FrontendURL)
	sessionHandler := api.NewSessionHandler(baseHandler)
	quizHandler := api.NewQuizHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo, catalog)
	wsHandler := api.NewWebSocketHandler(baseHandler)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Routes.
	healthHandler.RegisterHealth(r)
	sessionHandler.RegisterRoutes(r)
	quizHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/sessions/{sessionID}", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays generous: a respond call can hold the
	// connection through several model round trips.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.StartCleanupWorker(ctx, cleanupInterval, cfg.SessionTTL)
	slog.Info("Session cleanup worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
