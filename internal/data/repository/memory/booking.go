package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"

	"github.com/google/uuid"
)

type bookingRepo struct {
	handle
}

func sameLot(b entity.Booking, lotID uuid.UUID) bool {
	return b.ParkingLotID != nil && *b.ParkingLotID == lotID
}

// conflicts mirrors the bookings_no_slot_overlap exclusion constraint.
func (r bookingRepo) conflicts(candidate entity.Booking) bool {
	if candidate.ParkingLotID == nil || candidate.BookingStatus.IsTerminal() {
		return false
	}
	for _, b := range r.s.bookings {
		if b.ID == candidate.ID || b.BookingStatus.IsTerminal() {
			continue
		}
		if sameLot(b, *candidate.ParkingLotID) && b.SlotNumber == candidate.SlotNumber &&
			b.Overlaps(candidate.BookingStartTime, candidate.BookingEndTime) {
			return true
		}
	}
	return false
}

func (r bookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	defer r.lock()()
	if r.conflicts(*booking) {
		return fmt.Errorf("create booking on slot %s: %w", booking.SlotNumber, apperr.ErrSlotConflict)
	}
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer r.lock()()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// LockByID needs no row lock: the transaction already holds the store.
func (r bookingRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r bookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	defer r.lock()()
	matched := r.filter(func(b entity.Booking) bool { return b.UserID == userID })
	slices.SortFunc(matched, func(a, b *entity.Booking) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r bookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	defer r.lock()()
	return int64(len(r.filter(func(b entity.Booking) bool { return b.UserID == userID }))), nil
}

func (r bookingRepo) FindOccupiedSlots(_ context.Context, lotID uuid.UUID, start, end time.Time) ([]string, error) {
	defer r.lock()()
	seen := make(map[string]struct{})
	var slots []string
	for _, b := range r.s.bookings {
		if !sameLot(b, lotID) || b.BookingStatus.IsTerminal() || !b.Overlaps(start, end) {
			continue
		}
		if _, ok := seen[b.SlotNumber]; ok {
			continue
		}
		seen[b.SlotNumber] = struct{}{}
		slots = append(slots, b.SlotNumber)
	}
	return slots, nil
}

func (r bookingRepo) HasConflict(_ context.Context, lotID uuid.UUID, slot string, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	defer r.lock()()
	for _, b := range r.s.bookings {
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if sameLot(b, lotID) && b.SlotNumber == slot && !b.BookingStatus.IsTerminal() && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// LockSlot is a no-op: transactions already run one at a time.
func (r bookingRepo) LockSlot(context.Context, uuid.UUID, string) error {
	return nil
}

func (r bookingRepo) CountOccupying(_ context.Context, lotID uuid.UUID) (int, error) {
	defer r.lock()()
	return len(r.filter(func(b entity.Booking) bool {
		return sameLot(b, lotID) && b.BookingStatus.Occupying()
	})), nil
}

func (r bookingRepo) FindDueForActivation(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	defer r.lock()()
	due := r.filter(func(b entity.Booking) bool {
		return b.BookingStatus == entity.BookingStatusConfirmed && !b.BookingStartTime.After(now)
	})
	slices.SortFunc(due, func(a, b *entity.Booking) int { return a.BookingStartTime.Compare(b.BookingStartTime) })
	return truncate(due, limit), nil
}

func (r bookingRepo) FindDueForOverstay(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	defer r.lock()()
	due := r.filter(func(b entity.Booking) bool {
		return b.BookingStatus == entity.BookingStatusActive && b.BookingEndTime.Before(now)
	})
	slices.SortFunc(due, func(a, b *entity.Booking) int { return a.BookingEndTime.Compare(b.BookingEndTime) })
	return truncate(due, limit), nil
}

func (r bookingRepo) FindByStatus(_ context.Context, status entity.BookingStatus, limit int) ([]*entity.Booking, error) {
	defer r.lock()()
	matched := r.filter(func(b entity.Booking) bool { return b.BookingStatus == status })
	slices.SortFunc(matched, func(a, b *entity.Booking) int { return a.BookingEndTime.Compare(b.BookingEndTime) })
	return truncate(matched, limit), nil
}

func (r bookingRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to entity.BookingStatus, now time.Time) (bool, error) {
	defer r.lock()()
	b, ok := r.s.bookings[id]
	if !ok || b.BookingStatus != from {
		return false, nil
	}
	b.BookingStatus = to
	b.UpdatedAt = now
	r.s.bookings[id] = b
	return true, nil
}

func (r bookingRepo) UpdateExtension(_ context.Context, booking *entity.Booking) (bool, error) {
	defer r.lock()()
	b, ok := r.s.bookings[booking.ID]
	if !ok || b.BookingStatus != entity.BookingStatusActive {
		return false, nil
	}
	b.BookingEndTime = booking.BookingEndTime
	b.DurationHours = booking.DurationHours
	b.Amount = booking.Amount
	b.PaymentStatus = booking.PaymentStatus
	b.UpdatedAt = booking.UpdatedAt
	if r.conflicts(b) {
		return false, fmt.Errorf("extend booking %s: %w", booking.ID.String(), apperr.ErrSlotConflict)
	}
	r.s.bookings[b.ID] = b
	return true, nil
}

func (r bookingRepo) Complete(_ context.Context, booking *entity.Booking, from entity.BookingStatus) (bool, error) {
	defer r.lock()()
	b, ok := r.s.bookings[booking.ID]
	if !ok || b.BookingStatus != from {
		return false, nil
	}
	b.BookingStatus = entity.BookingStatusCompleted
	b.ExitTime = booking.ExitTime
	b.OverstayMinutes = booking.OverstayMinutes
	b.PenaltyAmount = booking.PenaltyAmount
	b.Amount = booking.Amount
	b.UpdatedAt = booking.UpdatedAt
	r.s.bookings[b.ID] = b
	return true, nil
}

func (r bookingRepo) UpdateOverstay(_ context.Context, id uuid.UUID, minutes int, penalty float64, now time.Time) (bool, error) {
	defer r.lock()()
	b, ok := r.s.bookings[id]
	if !ok || b.BookingStatus != entity.BookingStatusOverstay {
		return false, nil
	}
	b.OverstayMinutes = &minutes
	b.PenaltyAmount = &penalty
	b.UpdatedAt = now
	r.s.bookings[id] = b
	return true, nil
}

func (r bookingRepo) SetEntryTime(_ context.Context, id uuid.UUID, entry, now time.Time) error {
	defer r.lock()()
	b, ok := r.s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id.String(), apperr.ErrNotFound)
	}
	b.EntryTime = &entry
	b.UpdatedAt = now
	r.s.bookings[id] = b
	return nil
}

func (r bookingRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status entity.PaymentStatus, now time.Time) error {
	defer r.lock()()
	b, ok := r.s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id.String(), apperr.ErrNotFound)
	}
	b.PaymentStatus = status
	b.UpdatedAt = now
	r.s.bookings[id] = b
	return nil
}

func (r bookingRepo) filter(keep func(entity.Booking) bool) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, &b)
		}
	}
	return out
}

func truncate(bookings []*entity.Booking, limit int) []*entity.Booking {
	if limit > 0 && limit < len(bookings) {
		return bookings[:limit]
	}
	return bookings
}

type paymentRepo struct {
	handle
}

func (r paymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	defer r.lock()()
	if _, ok := r.s.bookings[payment.BookingID]; !ok {
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), apperr.ErrNotFound)
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	defer r.lock()()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r paymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.Payment, error) {
	defer r.lock()()
	var payments []*entity.Payment
	for _, p := range r.s.payments {
		if p.BookingID == bookingID {
			payments = append(payments, &p)
		}
	}
	slices.SortFunc(payments, func(a, b *entity.Payment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return payments, nil
}
