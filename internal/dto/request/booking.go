package request

import "time"

type CreateBookingRequest struct {
	OrganizationID string    `json:"organization_id" validate:"required,uuid"`
	VehicleNumber  string    `json:"vehicle_number" validate:"required,vehicle"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
}

type ExtendBookingRequest struct {
	ExtraHours int `json:"extra_hours" validate:"required,min=1,max=24"`
}

// EntryRequest is sent by the watchman at the gate. EntryTime defaults to now.
type EntryRequest struct {
	EntryTime *time.Time `json:"entry_time,omitempty"`
}

type ExitRequest struct {
	ExitTime      *time.Time `json:"exit_time,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card upi wallet"`
	TransactionID *string    `json:"transaction_id,omitempty"`
}

type PayBookingRequest struct {
	Method        string  `json:"method" validate:"required,oneof=cash card upi wallet"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

type SettleOverstayRequest struct {
	Method        string        `json:"method" validate:"required,oneof=cash card upi wallet"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	Rebook        *RebookWindow `json:"rebook,omitempty"`
}

// RebookWindow asks for a follow-up reservation in the same organization.
// VehicleNumber defaults to the settled booking's vehicle.
type RebookWindow struct {
	VehicleNumber string    `json:"vehicle_number,omitempty" validate:"omitempty,vehicle"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required"`
}

type AvailabilityRequest struct {
	OrganizationID string    `json:"organization_id" validate:"required,uuid"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
}
