package adaptor

import (
	"net/http"

	"parking-booking/internal/dto/request"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/utils"

	"go.uber.org/zap"
)

// GateHandler serves the watchman's entry and exit actions.
type GateHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewGateHandler(service usecase.BookingService, log *zap.Logger) *GateHandler {
	return &GateHandler{
		service: service,
		log:     log.With(zap.String("handler", "gate")),
	}
}

// Entry handles POST /api/gate/bookings/{id}/entry
func (h *GateHandler) Entry(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.EntryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.MarkEntry(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "mark entry")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Exit handles POST /api/gate/bookings/{id}/exit
func (h *GateHandler) Exit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.ExitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.MarkExit(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "mark exit")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
