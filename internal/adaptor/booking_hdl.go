package adaptor

import (
	"encoding/json"
	"net/http"
	"time"

	"parking-booking/internal/dto/request"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(h.log, w, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetUserBookings handles GET /api/user/bookings
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.service.ListUserBookings(r.Context(), userID, req)
	if err != nil {
		handleServiceError(h.log, w, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// ExtendBooking handles POST /api/bookings/{id}/extend
func (h *BookingHandler) ExtendBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.ExtendBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.ExtendBooking(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "extend booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(h.log, w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// PayBooking handles POST /api/bookings/{id}/pay
func (h *BookingHandler) PayBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.PayBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	payment, err := h.service.PayBooking(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "pay booking")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// SettleOverstay handles POST /api/bookings/{id}/settle
func (h *BookingHandler) SettleOverstay(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req request.SettleOverstayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.SettleOverstayAndRebook(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "settle overstay")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// GetPayments handles GET /api/bookings/{id}/payments
func (h *BookingHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(h.log, w, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// CheckAvailability handles GET /api/organizations/{orgID}/availability?start_time=&end_time= (public)
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := time.Parse(time.RFC3339, query.Get("start_time"))
	if err != nil {
		utils.ResponseBadRequest(w, "start_time must be RFC3339", nil)
		return
	}
	end, err := time.Parse(time.RFC3339, query.Get("end_time"))
	if err != nil {
		utils.ResponseBadRequest(w, "end_time must be RFC3339", nil)
		return
	}

	req := &request.AvailabilityRequest{
		OrganizationID: chi.URLParam(r, "orgID"),
		StartTime:      start,
		EndTime:        end,
	}

	availability, err := h.service.CheckAvailability(r.Context(), req)
	if err != nil {
		handleServiceError(h.log, w, err, "check availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}
