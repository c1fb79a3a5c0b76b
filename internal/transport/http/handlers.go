// @title Vallestelar Sentinel API
// @version 1.0.0
// @description Multi-tenant IoT fleet management backend
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/auth"
	"github.com/vallestelar/sentinel/internal/entity"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	authService   *auth.Service
	issuer        *auth.TokenIssuer
	identityStore auth.IdentityStore
	registry      *entity.Registry
	auditLogger   audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *auth.Service,
	issuer *auth.TokenIssuer,
	identityStore auth.IdentityStore,
	registry *entity.Registry,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		authService:   authService,
		issuer:        issuer,
		identityStore: identityStore,
		registry:      registry,
		auditLogger:   auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/login/token", h.Login)

		// Tenant-scoped entity routes (fail closed behind the token gate)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAccessToken)

			for _, schema := range h.registry.Schemas() {
				h.mountEntityRoutes(r, schema)
			}
		})
	})

	return r
}

// HealthCheck returns service health
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "sentinel",
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	TenantID string `json:"tenant_id" example:"c6b9c3be-7a2e-4f28-9a55-1d2f07f3f5a1"`
	Email    string `json:"email" example:"operator@example.com"`
	Password string `json:"password" example:"secret"`
}

// Login handles user login
// @Summary Login
// @Description Authenticate and mint a tenant-bound access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} auth.TokenResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /login/token [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "tenant_id, email and password are required")
		return
	}

	token, err := h.authService.Login(r.Context(), req.TenantID, req.Email, req.Password)
	if err != nil {
		// One answer for every failure mode
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, token)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
