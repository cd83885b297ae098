package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotLedger owns available_slots. The counter is a cache for dashboards;
// admission always goes through the overlap check against real bookings.
type SlotLedger interface {
	// UpdateAvailableSlots applies delta atomically and fails with
	// ErrInvariantViolation instead of clamping.
	UpdateAvailableSlots(ctx context.Context, lotID uuid.UUID, delta int) (*entity.ParkingLot, error)

	// RecomputeAvailability resets the counter to total_slots minus the
	// bookings currently occupying the lot.
	RecomputeAvailability(ctx context.Context, lotID uuid.UUID) (*entity.ParkingLot, error)
	RecomputeOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error)
}

type slotLedger struct {
	*deps
	log *zap.Logger
}

func newSlotLedger(d *deps, log *zap.Logger) *slotLedger {
	return &slotLedger{
		deps: d,
		log:  log.With(zap.String("service", "slot_ledger")),
	}
}

func (l *slotLedger) UpdateAvailableSlots(ctx context.Context, lotID uuid.UUID, delta int) (*entity.ParkingLot, error) {
	return l.apply(ctx, l.repo, lotID, delta, l.now())
}

// apply runs on repo, which may be bound to the caller's transaction.
func (l *slotLedger) apply(ctx context.Context, repo *repository.Repository, lotID uuid.UUID, delta int, now time.Time) (*entity.ParkingLot, error) {
	lot, err := repo.ParkingLot.UpdateAvailableSlots(ctx, lotID, delta, now)
	if errors.Is(err, apperr.ErrInvariantViolation) {
		l.metrics.LedgerViolations.Inc()
		l.log.Error("Slot ledger update rejected",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
			zap.Int("delta", delta),
		)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update available slots: %w", err)
	}

	l.log.Debug("Slot ledger updated",
		zap.String("lot_id", lotID.String()),
		zap.Int("delta", delta),
		zap.Int("available_slots", lot.AvailableSlots),
	)
	return lot, nil
}

func (l *slotLedger) RecomputeAvailability(ctx context.Context, lotID uuid.UUID) (*entity.ParkingLot, error) {
	var lot *entity.ParkingLot
	err := l.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		lot, err = l.recompute(ctx, tx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// recompute holds the lot row until the transaction ends, so a transition
// that is still moving the counter finishes before the count or after the reset.
func (l *slotLedger) recompute(ctx context.Context, repo *repository.Repository, lotID uuid.UUID) (*entity.ParkingLot, error) {
	lot, err := repo.ParkingLot.LockByID(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("lock parking lot: %w", err)
	}
	if lot == nil {
		return nil, fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
	}

	occupying, err := repo.Booking.CountOccupying(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("count occupying bookings: %w", err)
	}

	available := lot.TotalSlots - occupying
	if available < 0 {
		l.metrics.LedgerViolations.Inc()
		l.log.Error("More occupying bookings than slots",
			zap.String("lot_id", lotID.String()),
			zap.Int("occupying", occupying),
			zap.Int("total_slots", lot.TotalSlots),
		)
		return nil, fmt.Errorf("lot %s has %d occupying bookings for %d slots: %w",
			lotID.String(), occupying, lot.TotalSlots, apperr.ErrInvariantViolation)
	}

	if available != lot.AvailableSlots {
		if err := repo.ParkingLot.SetAvailableSlots(ctx, lotID, available, l.now()); err != nil {
			return nil, fmt.Errorf("set available slots: %w", err)
		}
		l.log.Warn("Slot ledger drift repaired",
			zap.String("lot_id", lotID.String()),
			zap.Int("cached", lot.AvailableSlots),
			zap.Int("actual", available),
		)
		lot.AvailableSlots = available
	}

	return lot, nil
}

func (l *slotLedger) RecomputeOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	lots, err := l.repo.ParkingLot.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("find parking lots: %w", err)
	}

	// one transaction per lot so a broken lot does not block the others
	var errs []error
	updated := make([]*entity.ParkingLot, 0, len(lots))
	for _, lot := range lots {
		fresh, err := l.RecomputeAvailability(ctx, lot.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		updated = append(updated, fresh)
	}

	l.log.Info("Organization availability recomputed",
		zap.String("organization_id", orgID.String()),
		zap.Int("lots", len(lots)),
		zap.Int("failed", len(errs)),
	)
	return updated, errors.Join(errs...)
}
