package wire

import (
	"parking-booking/internal/adaptor"
	"parking-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/organizations/{orgID}/availability - free slots per lot for a window
	r.Get("/api/organizations/{orgID}/availability", bookingHandler.CheckAvailability)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		r.Post("/api/bookings", bookingHandler.CreateBooking)
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)

		r.Route("/api/bookings/{id}", func(r chi.Router) {
			r.Get("/", bookingHandler.GetBooking)
			r.Post("/extend", bookingHandler.ExtendBooking)
			r.Post("/cancel", bookingHandler.CancelBooking)
			r.Post("/pay", bookingHandler.PayBooking)
			r.Post("/settle", bookingHandler.SettleOverstay)
			r.Get("/payments", bookingHandler.GetPayments)
		})
	})
}

// wireGate mounts the watchman actions. Staff membership is checked per booking
// by the service.
func wireGate(r chi.Router, gateHandler *adaptor.GateHandler, log *zap.Logger) {
	r.Route("/api/gate/bookings/{id}", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		r.Post("/entry", gateHandler.Entry)
		r.Post("/exit", gateHandler.Exit)
	})
}
