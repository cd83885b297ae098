package wire

import (
	"parking-booking/internal/adaptor"
	"parking-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireParkingLot(r chi.Router, lotHandler *adaptor.ParkingLotHandler, log *zap.Logger) {
	// GET /api/organizations/{orgID}/lots - lots in allocation order (public)
	r.Get("/api/organizations/{orgID}/lots", lotHandler.ListParkingLots)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		r.Post("/organizations/{orgID}/lots", lotHandler.CreateParkingLot)
		r.Post("/organizations/{orgID}/recompute", lotHandler.RecomputeOrganization)
		r.Delete("/lots/{id}", lotHandler.DeleteParkingLot)
		r.Post("/lots/{id}/recompute", lotHandler.RecomputeAvailability)
	})
}
