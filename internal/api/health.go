package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/simtutor/internal/simulation"
	"github.com/ashureev/simtutor/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	catalog *simulation.Catalog
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, catalog *simulation.Catalog) *HealthHandler {
	return &HealthHandler{repo: repo, catalog: catalog}
}

// Health returns the health status of the API and its dependencies,
// plus the simulations this instance can teach.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":                "healthy",
		"service":               "simtutor",
		"available_simulations": h.catalog.IDs(),
		"checks":                map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
