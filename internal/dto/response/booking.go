package response

import (
	"time"

	"parking-booking/internal/data/entity"
)

type BookingResponse struct {
	ID               string               `json:"id"`
	Reference        string               `json:"reference"`
	UserID           string               `json:"user_id"`
	OrganizationID   string               `json:"organization_id"`
	ParkingLotID     *string              `json:"parking_lot_id"`
	VehicleNumber    string               `json:"vehicle_number"`
	SlotNumber       string               `json:"slot_number"`
	BookingStartTime time.Time            `json:"booking_start_time"`
	BookingEndTime   time.Time            `json:"booking_end_time"`
	DurationHours    int                  `json:"duration_hours"`
	Amount           float64              `json:"amount"`
	PaymentStatus    entity.PaymentStatus `json:"payment_status"`
	BookingStatus    entity.BookingStatus `json:"booking_status"`
	EntryTime        *time.Time           `json:"entry_time,omitempty"`
	ExitTime         *time.Time           `json:"exit_time,omitempty"`
	OverstayMinutes  *int                 `json:"overstay_minutes,omitempty"`
	PenaltyAmount    *float64             `json:"penalty_amount,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Amount        float64              `json:"amount"`
	Method        entity.PaymentMethod `json:"method"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	Status        entity.PaymentStatus `json:"status"`
	PaymentType   entity.PaymentType   `json:"payment_type"`
	WatchmanID    *string              `json:"watchman_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ExitResponse carries the penalty payment when the exit settled an overstay.
type ExitResponse struct {
	Booking        BookingResponse  `json:"booking"`
	PenaltyPayment *PaymentResponse `json:"penalty_payment,omitempty"`
}

type SettleResponse struct {
	PenaltyPayment PaymentResponse  `json:"penalty_payment"`
	Booking        BookingResponse  `json:"booking"`
	NewBooking     *BookingResponse `json:"new_booking,omitempty"`
}

type LotAvailability struct {
	ParkingLotID   string   `json:"parking_lot_id"`
	Name           string   `json:"name"`
	PriorityOrder  int      `json:"priority_order"`
	TotalSlots     int      `json:"total_slots"`
	AvailableSlots int      `json:"available_slots"`
	FreeSlots      []string `json:"free_slots"`
}

type AvailabilityResponse struct {
	OrganizationID string            `json:"organization_id"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Lots           []LotAvailability `json:"lots"`
}

// Helper converters
func BookingToResponse(b *entity.Booking) BookingResponse {
	var lotID *string
	if b.ParkingLotID != nil {
		id := b.ParkingLotID.String()
		lotID = &id
	}

	return BookingResponse{
		ID:               b.ID.String(),
		Reference:        b.Reference,
		UserID:           b.UserID.String(),
		OrganizationID:   b.OrganizationID.String(),
		ParkingLotID:     lotID,
		VehicleNumber:    b.VehicleNumber,
		SlotNumber:       b.SlotNumber,
		BookingStartTime: b.BookingStartTime,
		BookingEndTime:   b.BookingEndTime,
		DurationHours:    b.DurationHours,
		Amount:           b.Amount,
		PaymentStatus:    b.PaymentStatus,
		BookingStatus:    b.BookingStatus,
		EntryTime:        b.EntryTime,
		ExitTime:         b.ExitTime,
		OverstayMinutes:  b.OverstayMinutes,
		PenaltyAmount:    b.PenaltyAmount,
		CreatedAt:        b.CreatedAt,
	}
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	var watchmanID *string
	if p.WatchmanID != nil {
		id := p.WatchmanID.String()
		watchmanID = &id
	}

	return PaymentResponse{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		TransactionID: p.TransactionID,
		Status:        p.Status,
		PaymentType:   p.PaymentType,
		WatchmanID:    watchmanID,
		CreatedAt:     p.CreatedAt,
	}
}
