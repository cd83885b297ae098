package entity

import "github.com/google/uuid"

type ParkingLot struct {
	BaseNoDelete
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	TotalSlots     int       `db:"total_slots"`
	AvailableSlots int       `db:"available_slots"` // cache, see RecomputeAvailability
	PriorityOrder  int       `db:"priority_order"`  // lower is tried first
	IsActive       bool      `db:"is_active"`
}
