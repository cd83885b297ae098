package usecase

import (
	"context"
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allocation is a reserved (lot, slot label) pair. It is only valid inside
// the transaction that produced it: the slot lock is released on commit.
type allocation struct {
	Lot  *entity.ParkingLot
	Slot string
}

type allocator struct {
	*deps
	log *zap.Logger
}

func newAllocator(d *deps, log *zap.Logger) *allocator {
	return &allocator{
		deps: d,
		log:  log.With(zap.String("service", "allocator")),
	}
}

// allocate walks the organization's active lots in (priority_order, id)
// order and returns the lowest free slot label of the first lot that has
// one. repo must be bound to a transaction.
func (a *allocator) allocate(ctx context.Context, repo *repository.Repository, orgID uuid.UUID, start, end time.Time) (*allocation, error) {
	lots, err := repo.ParkingLot.FindActiveByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("find active parking lots: %w", err)
	}
	if len(lots) == 0 {
		a.metrics.AllocationFailures.WithLabelValues("no_lots").Inc()
		return nil, fmt.Errorf("organization %s: %w", orgID.String(), apperr.ErrNoLotsConfigured)
	}

	for _, lot := range lots {
		// stale pre-filter, the overlap check below decides
		if lot.AvailableSlots <= 0 {
			continue
		}

		slot, err := a.firstFreeSlot(ctx, repo, lot, start, end)
		if err != nil {
			return nil, err
		}
		if slot != "" {
			a.log.Debug("Slot allocated",
				zap.String("lot_id", lot.ID.String()),
				zap.String("slot_number", slot),
			)
			return &allocation{Lot: lot, Slot: slot}, nil
		}
	}

	a.metrics.AllocationFailures.WithLabelValues("no_slot").Inc()
	return nil, fmt.Errorf("organization %s between %s and %s: %w",
		orgID.String(), start.Format(time.RFC3339), end.Format(time.RFC3339), apperr.ErrNoAvailableSlot)
}

// firstFreeSlot returns "" when every label of lot overlaps [start, end).
func (a *allocator) firstFreeSlot(ctx context.Context, repo *repository.Repository, lot *entity.ParkingLot, start, end time.Time) (string, error) {
	taken, err := occupiedSet(ctx, repo, lot.ID, start, end)
	if err != nil {
		return "", err
	}

	for n := 1; n <= lot.TotalSlots; n++ {
		label := SlotLabel(lot.Name, n)
		if isTaken(taken, label) {
			continue
		}

		// Another transaction may have taken the label since the read above.
		if err := repo.Booking.LockSlot(ctx, lot.ID, label); err != nil {
			return "", err
		}
		conflict, err := repo.Booking.HasConflict(ctx, lot.ID, label, start, end, nil)
		if err != nil {
			return "", fmt.Errorf("check slot conflict: %w", err)
		}
		if !conflict {
			return label, nil
		}
	}

	return "", nil
}

// freeSlots lists the labels of lot that are free over [start, end).
func freeSlots(ctx context.Context, repo *repository.Repository, lot *entity.ParkingLot, start, end time.Time) ([]string, error) {
	taken, err := occupiedSet(ctx, repo, lot.ID, start, end)
	if err != nil {
		return nil, err
	}

	free := make([]string, 0, lot.TotalSlots)
	for n := 1; n <= lot.TotalSlots; n++ {
		if label := SlotLabel(lot.Name, n); !isTaken(taken, label) {
			free = append(free, label)
		}
	}
	return free, nil
}

func occupiedSet(ctx context.Context, repo *repository.Repository, lotID uuid.UUID, start, end time.Time) (map[string]struct{}, error) {
	occupied, err := repo.Booking.FindOccupiedSlots(ctx, lotID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find occupied slots: %w", err)
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, slot := range occupied {
		taken[slot] = struct{}{}
	}
	return taken, nil
}

func isTaken(taken map[string]struct{}, label string) bool {
	_, ok := taken[label]
	return ok
}
