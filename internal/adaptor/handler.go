package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"parking-booking/internal/apperr"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Booking    *BookingHandler
	Gate       *GateHandler
	ParkingLot *ParkingLotHandler
	Lifecycle  *LifecycleHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:    NewBookingHandler(service.Booking, log),
		Gate:       NewGateHandler(service.Booking, log),
		ParkingLot: NewParkingLotHandler(service.ParkingLot, log),
		Lifecycle:  NewLifecycleHandler(service.Lifecycle, log),
	}
}

// currentUser reads the identity set by the gateway middleware and answers
// 401 itself when it is missing.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes an optional JSON body. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// handleServiceError maps the engine's sentinel errors onto HTTP statuses.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, errMsg)

	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidWindow),
		errors.Is(err, apperr.ErrEarlyEntry):
		log.Warn("Invalid input for "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, errMsg, nil)

	case errors.Is(err, apperr.ErrForbidden):
		log.Warn(operation+" failed - forbidden",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseForbidden(w, errMsg)

	case errors.Is(err, apperr.ErrSlotConflict),
		errors.Is(err, apperr.ErrNoAvailableSlot),
		errors.Is(err, apperr.ErrNoLotsConfigured),
		errors.Is(err, apperr.ErrNotActive),
		errors.Is(err, apperr.ErrNotOverstay),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrLotInUse),
		errors.Is(err, apperr.ErrDuplicateLotName),
		errors.Is(err, apperr.ErrOrganizationInactive):
		log.Warn(operation+" failed - conflict",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, errMsg)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
