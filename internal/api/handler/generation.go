package handler

import (
	"net/http"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/request"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/services/generation"
)

// GenerationHandler handles the auto-generate endpoint
type GenerationHandler struct {
	engine *generation.Engine
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(engine *generation.Engine) *GenerationHandler {
	return &GenerationHandler{
		engine: engine,
	}
}

// Generate handles POST /api/auto-generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.engine.Generate(r.Context(), principal, generation.Request{
		RegistryType: req.RegistryType,
		CityID:       req.CityID,
		Count:        req.Count,
		Seed:         req.Seed,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Generated{
		GeneratedItems: result.Items,
		Count:          result.Count,
		Warnings:       result.Warnings,
	})
}
