package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/services/migration"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
)

// AdminHandler handles super-admin maintenance endpoints
type AdminHandler struct {
	migrator *migration.Migrator
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(migrator *migration.Migrator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		migrator: migrator,
		logger:   logger,
	}
}

// Migrate handles POST /api/admin/migrate
func (h *AdminHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	if err := ownership.RequireSuperAdmin(principal); err != nil {
		WriteError(w, err)
		return
	}

	report, err := h.migrator.Run(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	h.logger.Info("migration run via api", slog.String("account_id", string(principal.AccountID)))
	response.JSON(w, http.StatusOK, report)
}
