package adaptor

import (
	"encoding/json"
	"net/http"

	"parking-booking/internal/dto/request"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/utils"

	"go.uber.org/zap"
)

type ParkingLotHandler struct {
	service usecase.ParkingLotService
	log     *zap.Logger
}

func NewParkingLotHandler(service usecase.ParkingLotService, log *zap.Logger) *ParkingLotHandler {
	return &ParkingLotHandler{
		service: service,
		log:     log.With(zap.String("handler", "parking_lot")),
	}
}

// ListParkingLots handles GET /api/organizations/{orgID}/lots (public)
func (h *ParkingLotHandler) ListParkingLots(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}

	lots, err := h.service.ListParkingLots(r.Context(), orgID)
	if err != nil {
		handleServiceError(h.log, w, err, "list parking lots")
		return
	}

	utils.ResponseSuccess(w, "success", lots)
}

// ==================== ADMIN METHODS ====================

// CreateParkingLot handles POST /api/admin/organizations/{orgID}/lots
func (h *ParkingLotHandler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}

	var req request.CreateParkingLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	lot, err := h.service.CreateParkingLot(r.Context(), userID, orgID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create parking lot")
		return
	}

	utils.ResponseCreated(w, "success", lot)
}

// DeleteParkingLot handles DELETE /api/admin/lots/{id}
func (h *ParkingLotHandler) DeleteParkingLot(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lotID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteParkingLot(r.Context(), userID, lotID); err != nil {
		handleServiceError(h.log, w, err, "delete parking lot")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// RecomputeAvailability handles POST /api/admin/lots/{id}/recompute
func (h *ParkingLotHandler) RecomputeAvailability(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lotID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	lot, err := h.service.RecomputeAvailability(r.Context(), userID, lotID)
	if err != nil {
		handleServiceError(h.log, w, err, "recompute availability")
		return
	}

	utils.ResponseSuccess(w, "success", lot)
}

// RecomputeOrganization handles POST /api/admin/organizations/{orgID}/recompute
func (h *ParkingLotHandler) RecomputeOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "orgID")
	if !ok {
		return
	}

	lots, err := h.service.RecomputeOrganization(r.Context(), userID, orgID)
	if err != nil {
		handleServiceError(h.log, w, err, "recompute organization")
		return
	}

	utils.ResponseSuccess(w, "success", lots)
}
