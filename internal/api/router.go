package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/realmkeeper/internal/api/apierr"
	"github.com/mcoot/realmkeeper/internal/api/handler"
	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/response"
	sharedmw "github.com/mcoot/realmkeeper/internal/middleware"
	"github.com/mcoot/realmkeeper/internal/realtime"
	"github.com/mcoot/realmkeeper/internal/services/auth"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/generation"
	"github.com/mcoot/realmkeeper/internal/services/kingdom"
	"github.com/mcoot/realmkeeper/internal/services/migration"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	AuthService      *auth.Service
	KingdomService   *kingdom.Service
	GenerationEngine *generation.Engine
	Recorder         *events.Recorder
	Hub              *realtime.Hub
	Migrator         *migration.Migrator

	// HealthCheck reports backing store connectivity; nil means always healthy
	HealthCheck func(ctx context.Context) error
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	kingdomHandler := handler.NewKingdomHandler(cfg.KingdomService)
	registryHandler := handler.NewRegistryHandler(cfg.KingdomService)
	generationHandler := handler.NewGenerationHandler(cfg.GenerationEngine)
	eventHandler := handler.NewEventHandler(cfg.Recorder, cfg.Hub)
	adminHandler := handler.NewAdminHandler(cfg.Migrator, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Public routes
	api.HandleFunc("/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/health", healthHandler(cfg.HealthCheck)).Methods(http.MethodGet)

	// Everything else requires a bearer token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/verify-token", authHandler.VerifyToken).Methods(http.MethodGet)
	protected.HandleFunc("/auth/refresh-token", authHandler.RefreshToken).Methods(http.MethodPost)

	// Kingdom routes
	protected.HandleFunc("/multi-kingdoms", kingdomHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/multi-kingdoms", kingdomHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/multi-kingdom/{id}", kingdomHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/multi-kingdom/{id}", kingdomHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/multi-kingdom/{id}", kingdomHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/multi-kingdom/{id}/activate", kingdomHandler.Activate).Methods(http.MethodPost)

	// City routes
	protected.HandleFunc("/cities", kingdomHandler.CreateCity).Methods(http.MethodPost)
	protected.HandleFunc("/city/{id}", kingdomHandler.GetCity).Methods(http.MethodGet)
	protected.HandleFunc("/city/{id}", kingdomHandler.UpdateCity).Methods(http.MethodPut)
	protected.HandleFunc("/city/{id}", kingdomHandler.DeleteCity).Methods(http.MethodDelete)

	// Registry routes
	protected.HandleFunc("/citizens", registryHandler.CreateCitizen).Methods(http.MethodPost)
	protected.HandleFunc("/slaves", registryHandler.CreateSlave).Methods(http.MethodPost)
	protected.HandleFunc("/livestock", registryHandler.CreateLivestock).Methods(http.MethodPost)
	protected.HandleFunc("/soldiers", registryHandler.CreateSoldier).Methods(http.MethodPost)
	protected.HandleFunc("/tribute", registryHandler.CreateTribute).Methods(http.MethodPost)
	protected.HandleFunc("/crimes", registryHandler.CreateCrime).Methods(http.MethodPost)
	protected.HandleFunc("/officials", registryHandler.CreateOfficial).Methods(http.MethodPost)
	protected.HandleFunc("/city/{id}/{registry}/{record_id}", registryHandler.Delete).Methods(http.MethodDelete)

	// Generation, events and realtime
	protected.HandleFunc("/auto-generate", generationHandler.Generate).Methods(http.MethodPost)
	protected.HandleFunc("/events", eventHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/ws", eventHandler.Stream).Methods(http.MethodGet)

	// Admin routes
	protected.HandleFunc("/admin/migrate", adminHandler.Migrate).Methods(http.MethodPost)

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				apierr.WriteError(w, err)
				return
			}
		}
		response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
	}
}
