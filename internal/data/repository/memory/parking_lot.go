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

type organizationRepo struct {
	handle
}

func (r organizationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Organization, error) {
	defer r.lock()()
	org, ok := r.s.orgs[id]
	if !ok || org.DeletedAt != nil {
		return nil, nil
	}
	return &org, nil
}

type userRepo struct {
	handle
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.lock()()
	user, ok := r.s.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, nil
	}
	return &user, nil
}

type parkingLotRepo struct {
	handle
}

func (r parkingLotRepo) Create(_ context.Context, lot *entity.ParkingLot) error {
	defer r.lock()()
	for _, existing := range r.s.lots {
		if existing.OrganizationID == lot.OrganizationID && existing.Name == lot.Name {
			return fmt.Errorf("create parking lot %q: %w", lot.Name, apperr.ErrDuplicateLotName)
		}
	}
	r.s.lots[lot.ID] = *lot
	return nil
}

func (r parkingLotRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.ParkingLot, error) {
	defer r.lock()()
	lot, ok := r.s.lots[id]
	if !ok {
		return nil, nil
	}
	return &lot, nil
}

// LockByID needs no row lock: the transaction already holds the store.
func (r parkingLotRepo) LockByID(ctx context.Context, id uuid.UUID) (*entity.ParkingLot, error) {
	return r.FindByID(ctx, id)
}

func (r parkingLotRepo) FindByOrganization(_ context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	defer r.lock()()
	return r.lotsOf(orgID, false), nil
}

func (r parkingLotRepo) FindActiveByOrganization(_ context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	defer r.lock()()
	return r.lotsOf(orgID, true), nil
}

func (r parkingLotRepo) lotsOf(orgID uuid.UUID, activeOnly bool) []*entity.ParkingLot {
	var lots []*entity.ParkingLot
	for _, lot := range r.s.lots {
		if lot.OrganizationID != orgID || (activeOnly && !lot.IsActive) {
			continue
		}
		lots = append(lots, &lot)
	}
	slices.SortFunc(lots, func(a, b *entity.ParkingLot) int {
		if a.PriorityOrder != b.PriorityOrder {
			return a.PriorityOrder - b.PriorityOrder
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return lots
}

func (r parkingLotRepo) UpdateAvailableSlots(_ context.Context, lotID uuid.UUID, delta int, now time.Time) (*entity.ParkingLot, error) {
	defer r.lock()()
	lot, ok := r.s.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
	}
	next := lot.AvailableSlots + delta
	if next < 0 || next > lot.TotalSlots {
		return nil, fmt.Errorf("lot %s: available %d%+d outside [0, %d]: %w",
			lotID.String(), lot.AvailableSlots, delta, lot.TotalSlots, apperr.ErrInvariantViolation)
	}
	lot.AvailableSlots = next
	lot.UpdatedAt = now
	r.s.lots[lotID] = lot
	return &lot, nil
}

func (r parkingLotRepo) SetAvailableSlots(_ context.Context, lotID uuid.UUID, available int, now time.Time) error {
	defer r.lock()()
	lot, ok := r.s.lots[lotID]
	if !ok {
		return fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
	}
	if available < 0 || available > lot.TotalSlots {
		return fmt.Errorf("lot %s: available %d outside [0, %d]: %w",
			lotID.String(), available, lot.TotalSlots, apperr.ErrInvariantViolation)
	}
	lot.AvailableSlots = available
	lot.UpdatedAt = now
	r.s.lots[lotID] = lot
	return nil
}

func (r parkingLotRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.s.lots[id]; !ok {
		return fmt.Errorf("parking lot %s: %w", id.String(), apperr.ErrNotFound)
	}
	for _, b := range r.s.bookings {
		if b.ParkingLotID != nil && *b.ParkingLotID == id && !b.BookingStatus.IsTerminal() {
			return fmt.Errorf("delete parking lot %s: %w", id.String(), apperr.ErrLotInUse)
		}
	}
	delete(r.s.lots, id)
	for bookingID, b := range r.s.bookings {
		if b.ParkingLotID != nil && *b.ParkingLotID == id {
			b.ParkingLotID = nil
			r.s.bookings[bookingID] = b
		}
	}
	return nil
}
