package api

import (
	"encoding/json"
	"net/http"

	"carbridge/pricer/internal/db/repositories"
)

// HpHandler manages the horsepower lookup cache over HTTP. Its one job is
// re-opening negative entries once upstream coverage improves.
type HpHandler struct {
	lookups *repositories.HpLookupRepository
}

func NewHpHandler(lookups *repositories.HpLookupRepository) *HpHandler {
	return &HpHandler{lookups: lookups}
}

type reopenRequest struct {
	Manufacturer string `json:"manufacturer"`
	ModelGroup   string `json:"model_group"`
	Model        string `json:"model"`
	Grade        string `json:"grade"`
	Year         int    `json:"year"`
	Fuel         string `json:"fuel"`
	Transmission string `json:"transmission"`
	Displacement int    `json:"displacement"`
}

type reopenResponse struct {
	Reopened bool `json:"reopened"`
}

// ReopenLookup flips one cached lookup back to pending so the next cycle
// queries the external sources again.
func (h *HpHandler) ReopenLookup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reopenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Manufacturer == "" || req.Model == "" || req.Year == 0 {
			respondWithError(w, http.StatusBadRequest, "manufacturer, model and year are required")
			return
		}

		key := repositories.HpKey{
			Manufacturer: req.Manufacturer,
			ModelGroup:   req.ModelGroup,
			Model:        req.Model,
			Grade:        req.Grade,
			Year:         req.Year,
			Fuel:         req.Fuel,
			Transmission: req.Transmission,
			Displacement: req.Displacement,
		}

		reopened, err := h.lookups.Reopen(r.Context(), key)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !reopened {
			respondWithError(w, http.StatusNotFound, "no lookup entry for that key")
			return
		}

		respondWithSuccess(w, http.StatusOK, &reopenResponse{Reopened: true})
	}
}
