package response

import (
	"time"

	"parking-booking/internal/data/entity"
)

type ParkingLotResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	TotalSlots     int       `json:"total_slots"`
	AvailableSlots int       `json:"available_slots"`
	PriorityOrder  int       `json:"priority_order"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// SweepResponse counts the transitions made by one lifecycle sweep.
type SweepResponse struct {
	Activated  int  `json:"activated"`
	Overstayed int  `json:"overstayed"`
	Repriced   int  `json:"repriced"`
	Failed     int  `json:"failed"`
	Skipped    bool `json:"skipped,omitempty"`
}

func ParkingLotToResponse(lot *entity.ParkingLot) ParkingLotResponse {
	return ParkingLotResponse{
		ID:             lot.ID.String(),
		OrganizationID: lot.OrganizationID.String(),
		Name:           lot.Name,
		TotalSlots:     lot.TotalSlots,
		AvailableSlots: lot.AvailableSlots,
		PriorityOrder:  lot.PriorityOrder,
		IsActive:       lot.IsActive,
		CreatedAt:      lot.CreatedAt,
	}
}

func ParkingLotsToResponse(lots []*entity.ParkingLot) []ParkingLotResponse {
	out := make([]ParkingLotResponse, len(lots))
	for i, lot := range lots {
		out[i] = ParkingLotToResponse(lot)
	}
	return out
}
