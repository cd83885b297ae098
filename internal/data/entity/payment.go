package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentTypeBooking PaymentType = "booking"
	PaymentTypePenalty PaymentType = "penalty"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// Payment rows are immutable except for status leaving pending.
type Payment struct {
	BaseNoDelete
	BookingID     uuid.UUID     `db:"booking_id"`
	Amount        float64       `db:"amount"`
	Method        PaymentMethod `db:"method"`
	TransactionID *string       `db:"transaction_id"`
	Status        PaymentStatus `db:"status"`
	PaymentType   PaymentType   `db:"payment_type"`
	WatchmanID    *uuid.UUID    `db:"watchman_id"` // cash collector
}
