package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/kingdom"
)

// RegistryHandler handles manual registry record endpoints
type RegistryHandler struct {
	kingdoms *kingdom.Service
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(kingdoms *kingdom.Service) *RegistryHandler {
	return &RegistryHandler{
		kingdoms: kingdoms,
	}
}

// CreateCitizen handles POST /api/citizens
func (h *RegistryHandler) CreateCitizen(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Citizen](h, w, r)
}

// CreateSlave handles POST /api/slaves
func (h *RegistryHandler) CreateSlave(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Slave](h, w, r)
}

// CreateLivestock handles POST /api/livestock
func (h *RegistryHandler) CreateLivestock(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Livestock](h, w, r)
}

// CreateSoldier handles POST /api/soldiers
func (h *RegistryHandler) CreateSoldier(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Soldier](h, w, r)
}

// CreateTribute handles POST /api/tribute
func (h *RegistryHandler) CreateTribute(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Tribute](h, w, r)
}

// CreateCrime handles POST /api/crimes
func (h *RegistryHandler) CreateCrime(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Crime](h, w, r)
}

// CreateOfficial handles POST /api/officials
func (h *RegistryHandler) CreateOfficial(w http.ResponseWriter, r *http.Request) {
	createRecord[model.Official](h, w, r)
}

// Delete handles DELETE /api/city/{id}/{registry}/{record_id}
func (h *RegistryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	vars := mux.Vars(r)

	registry, err := model.ParseRegistryType(vars["registry"])
	if err != nil {
		WriteError(w, err)
		return
	}

	_, err = h.kingdoms.RemoveRecord(r.Context(), principal,
		model.CityID(vars["id"]), registry, model.RecordID(vars["record_id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// createRecord decodes one record of type T; the body names its city in city_id
func createRecord[T model.Record](h *RegistryHandler, w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var record T
	if err := decodeJSON(w, r, &record); err != nil {
		WriteError(w, err)
		return
	}
	if record.City() == "" {
		WriteError(w, model.NewValidationError("city_id", "is required"))
		return
	}

	created, warnings, err := h.kingdoms.AddRecord(r.Context(), principal, record.City(), record)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Created(w, response.Record{Record: created, Warnings: warnings})
}
