package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusOverstay  BookingStatus = "overstay"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// TerminalStatuses never hold a slot or an overlap window.
var TerminalStatuses = []BookingStatus{BookingStatusCompleted, BookingStatusCancelled}

// LifecycleEvent drives BookingStatus.Next.
type LifecycleEvent string

const (
	EventStart  LifecycleEvent = "start"  // start_time reached
	EventExpire LifecycleEvent = "expire" // end_time passed while parked
	EventExit   LifecycleEvent = "exit"   // vehicle left
	EventCancel LifecycleEvent = "cancel" // user or admin cancel
	EventExtend LifecycleEvent = "extend" // end_time pushed back
	EventSettle LifecycleEvent = "settle" // overstay penalty paid
)

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled:
		return true
	case BookingStatusConfirmed, BookingStatusActive, BookingStatusOverstay:
		return false
	default:
		return false
	}
}

// Occupying reports whether the booking is counted against available_slots.
// Overstay still occupies: the vehicle is physically present.
func (s BookingStatus) Occupying() bool {
	switch s {
	case BookingStatusActive, BookingStatusOverstay:
		return true
	case BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return false
	default:
		return false
	}
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusActive, BookingStatusOverstay,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// Next returns the status reached by applying ev to s, or an error when the
// transition is not part of the lifecycle.
func (s BookingStatus) Next(ev LifecycleEvent) (BookingStatus, error) {
	switch s {
	case BookingStatusConfirmed:
		switch ev {
		case EventStart:
			return BookingStatusActive, nil
		case EventCancel:
			return BookingStatusCancelled, nil
		}
	case BookingStatusActive:
		switch ev {
		case EventExpire:
			return BookingStatusOverstay, nil
		case EventExit:
			return BookingStatusCompleted, nil
		case EventCancel:
			return BookingStatusCancelled, nil
		case EventExtend:
			return BookingStatusActive, nil
		}
	case BookingStatusOverstay:
		switch ev {
		case EventExit, EventSettle:
			return BookingStatusCompleted, nil
		}
	case BookingStatusCompleted, BookingStatusCancelled:
	}
	return s, fmt.Errorf("%s on %s booking", ev, s)
}

// InitialBookingStatus: future starts are confirmed, everything else is a walk-in.
func InitialBookingStatus(start, now time.Time) BookingStatus {
	if start.After(now) {
		return BookingStatusConfirmed
	}
	return BookingStatusActive
}

type Booking struct {
	BaseNoDelete
	Reference        string        `db:"reference"`
	UserID           uuid.UUID     `db:"user_id"`
	OrganizationID   uuid.UUID     `db:"organization_id"`
	ParkingLotID     *uuid.UUID    `db:"parking_lot_id"` // nil for legacy unassigned rows
	VehicleNumber    string        `db:"vehicle_number"`
	SlotNumber       string        `db:"slot_number"`
	BookingStartTime time.Time     `db:"booking_start_time"`
	BookingEndTime   time.Time     `db:"booking_end_time"`
	DurationHours    int           `db:"duration_hours"`
	Amount           float64       `db:"amount"`
	PaymentStatus    PaymentStatus `db:"payment_status"`
	BookingStatus    BookingStatus `db:"booking_status"`
	EntryTime        *time.Time    `db:"entry_time"`
	ExitTime         *time.Time    `db:"exit_time"`
	OverstayMinutes  *int          `db:"overstay_minutes"`
	PenaltyAmount    *float64      `db:"penalty_amount"`
}

// Overlaps reports whether [start, end) intersects the booking window.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.BookingStartTime, b.BookingEndTime, start, end)
}

// Overlaps is the half-open interval predicate: [s1,e1) and [s2,e2) overlap
// iff s1 < e2 and s2 < e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
