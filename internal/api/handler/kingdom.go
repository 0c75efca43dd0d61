package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/request"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/kingdom"
)

// KingdomHandler handles kingdom and city endpoints
type KingdomHandler struct {
	kingdoms *kingdom.Service
}

// NewKingdomHandler creates a new kingdom handler
func NewKingdomHandler(kingdoms *kingdom.Service) *KingdomHandler {
	return &KingdomHandler{
		kingdoms: kingdoms,
	}
}

// List handles GET /api/multi-kingdoms
func (h *KingdomHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	kingdoms, err := h.kingdoms.ListKingdoms(r.Context(), principal)
	if err != nil {
		WriteError(w, err)
		return
	}
	if kingdoms == nil {
		kingdoms = []*model.Kingdom{}
	}
	response.JSON(w, http.StatusOK, kingdoms)
}

// Create handles POST /api/multi-kingdoms
func (h *KingdomHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.CreateKingdomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	k, warnings, err := h.kingdoms.CreateKingdom(r.Context(), principal, kingdom.NewKingdom{
		Name:          req.Name,
		Ruler:         req.Ruler,
		RoyalTreasury: req.RoyalTreasury,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Created(w, response.Kingdom{Kingdom: k, Warnings: warnings})
}

// Get handles GET /api/multi-kingdom/{id}
func (h *KingdomHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	k, err := h.kingdoms.GetKingdom(r.Context(), principal, kingdomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, k)
}

// Update handles PUT /api/multi-kingdom/{id}
func (h *KingdomHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.UpdateKingdomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	k, warnings, err := h.kingdoms.UpdateKingdom(r.Context(), principal, kingdomID(r), kingdom.KingdomPatch{
		Name:          req.Name,
		Ruler:         req.Ruler,
		RoyalTreasury: req.RoyalTreasury,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Kingdom{Kingdom: k, Warnings: warnings})
}

// Delete handles DELETE /api/multi-kingdom/{id}
func (h *KingdomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	warnings, err := h.kingdoms.DeleteKingdom(r.Context(), principal, kingdomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Deleted{Deleted: true, Warnings: warnings})
}

// Activate handles POST /api/multi-kingdom/{id}/activate
func (h *KingdomHandler) Activate(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	k, err := h.kingdoms.ActivateKingdom(r.Context(), principal, kingdomID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, k)
}

// CreateCity handles POST /api/cities
func (h *KingdomHandler) CreateCity(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.CreateCityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	city, warnings, err := h.kingdoms.CreateCity(r.Context(), principal, kingdom.NewCity{
		KingdomID:   req.KingdomID,
		Name:        req.Name,
		Governor:    req.Governor,
		Population:  req.Population,
		Treasury:    req.Treasury,
		XCoordinate: req.XCoordinate,
		YCoordinate: req.YCoordinate,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Created(w, response.City{City: city, Warnings: warnings})
}

// GetCity handles GET /api/city/{id}
func (h *KingdomHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	city, err := h.kingdoms.GetCity(r.Context(), principal, cityID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, city)
}

// UpdateCity handles PUT /api/city/{id}
func (h *KingdomHandler) UpdateCity(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.UpdateCityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	city, warnings, err := h.kingdoms.UpdateCity(r.Context(), principal, cityID(r), kingdom.CityPatch{
		Name:        req.Name,
		Governor:    req.Governor,
		Population:  req.Population,
		Treasury:    req.Treasury,
		XCoordinate: req.XCoordinate,
		YCoordinate: req.YCoordinate,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.City{City: city, Warnings: warnings})
}

// DeleteCity handles DELETE /api/city/{id}
func (h *KingdomHandler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	warnings, err := h.kingdoms.DeleteCity(r.Context(), principal, cityID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Deleted{Deleted: true, Warnings: warnings})
}

func kingdomID(r *http.Request) model.KingdomID {
	return model.KingdomID(mux.Vars(r)["id"])
}

func cityID(r *http.Request) model.CityID {
	return model.CityID(mux.Vars(r)["id"])
}
