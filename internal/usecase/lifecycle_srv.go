package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"
	"parking-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultSweepBatch = 500

type LifecycleService interface {
	// SweepLifecycle activates confirmed bookings whose start has arrived,
	// flags active bookings past their end as overstay and reprices open
	// overstays. It is idempotent and safe to run concurrently with itself
	// and with booking operations.
	SweepLifecycle(ctx context.Context, now time.Time, batchSize int) (*response.SweepResponse, error)
}

type lifecycleService struct {
	*deps
	bookings *bookingService
	log      *zap.Logger
}

func newLifecycleService(d *deps, bookings *bookingService, log *zap.Logger) *lifecycleService {
	return &lifecycleService{
		deps:     d,
		bookings: bookings,
		log:      log.With(zap.String("service", "lifecycle")),
	}
}

func (s *lifecycleService) SweepLifecycle(ctx context.Context, now time.Time, batchSize int) (resp *response.SweepResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.sweep")
	defer func() { finishSpan(span, err) }()

	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}

	if s.sweepGuard != nil {
		unlock, acquired, err := s.sweepGuard.TryLock(ctx)
		switch {
		case err != nil:
			// the lock only saves work, transitions are compare-and-swap
			s.log.Warn("Sweep lock unavailable, sweeping anyway", zap.Error(err))
		case !acquired:
			s.metrics.SweepSkipped.Inc()
			s.log.Debug("Sweep already running elsewhere")
			return &response.SweepResponse{Skipped: true}, nil
		default:
			defer func() { _ = unlock(context.WithoutCancel(ctx)) }()
		}
	}

	started := time.Now()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(started).Seconds()) }()

	result := &response.SweepResponse{}
	rates := make(map[uuid.UUID]float64)

	due, err := s.repo.Booking.FindDueForActivation(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("find bookings due for activation: %w", err)
	}
	for _, b := range due {
		ok, err := s.activate(ctx, b.ID, now)
		s.count(&result.Activated, &result.Failed, ok, err, b.ID, "activate")
	}

	due, err = s.repo.Booking.FindDueForOverstay(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("find bookings due for overstay: %w", err)
	}
	for _, b := range due {
		ok, err := s.flagOverstay(ctx, b.ID, now, rates)
		s.count(&result.Overstayed, &result.Failed, ok, err, b.ID, "overstay")
	}

	overstays, err := s.repo.Booking.FindByStatus(ctx, entity.BookingStatusOverstay, batchSize)
	if err != nil {
		return nil, fmt.Errorf("find overstay bookings: %w", err)
	}
	for _, b := range overstays {
		ok, err := s.reprice(ctx, b, now, rates)
		s.count(&result.Repriced, &result.Failed, ok, err, b.ID, "reprice")
	}

	span.SetAttributes(
		attribute.Int("activated", result.Activated),
		attribute.Int("overstayed", result.Overstayed),
		attribute.Int("repriced", result.Repriced),
	)
	s.log.Info("Lifecycle sweep finished",
		zap.Time("now", now),
		zap.Int("activated", result.Activated),
		zap.Int("overstayed", result.Overstayed),
		zap.Int("repriced", result.Repriced),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// count tallies one booking. Failures are logged and skipped so one broken
// booking cannot stall the sweep.
func (s *lifecycleService) count(done, failed *int, ok bool, err error, id uuid.UUID, step string) {
	switch {
	case err != nil:
		*failed++
		level := s.log.Warn
		if errors.Is(err, apperr.ErrInvariantViolation) {
			level = s.log.Error
		}
		level("Sweep step failed",
			zap.Error(err),
			zap.String("step", step),
			zap.String("booking_id", id.String()),
		)
	case ok:
		*done++
	}
}

// activate moves one confirmed booking to active and takes its slot.
// false means another path got there first.
func (s *lifecycleService) activate(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var done bool
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus != entity.BookingStatusConfirmed || b.BookingStartTime.After(now) {
			return nil
		}
		to, err := b.BookingStatus.Next(entity.EventStart)
		if err != nil {
			return err
		}
		if err := s.bookings.transition(ctx, tx, b, entity.BookingStatusConfirmed, to, now); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

func (s *lifecycleService) flagOverstay(ctx context.Context, id uuid.UUID, now time.Time, rates map[uuid.UUID]float64) (bool, error) {
	var done bool
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus != entity.BookingStatusActive || !b.BookingEndTime.Before(now) {
			return nil
		}
		to, err := b.BookingStatus.Next(entity.EventExpire)
		if err != nil {
			return err
		}

		rate, err := s.hourlyRate(ctx, tx, b.OrganizationID, rates)
		if err != nil {
			return err
		}
		penalty, err := CalculatePenalty(b.BookingEndTime, now, rate, s.cfg.PenaltyMultiplier)
		if err != nil {
			return err
		}

		if err := s.bookings.transition(ctx, tx, b, entity.BookingStatusActive, to, now); err != nil {
			return err
		}
		if _, err := tx.Booking.UpdateOverstay(ctx, b.ID, penalty.Minutes, penalty.Amount, now); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

// reprice refreshes the running penalty of an overstay booking. Nothing is
// written when the overstay minutes have not moved.
func (s *lifecycleService) reprice(ctx context.Context, b *entity.Booking, now time.Time, rates map[uuid.UUID]float64) (bool, error) {
	rate, err := s.hourlyRate(ctx, s.repo, b.OrganizationID, rates)
	if err != nil {
		return false, err
	}
	penalty, err := CalculatePenalty(b.BookingEndTime, now, rate, s.cfg.PenaltyMultiplier)
	if err != nil {
		return false, err
	}
	if b.OverstayMinutes != nil && *b.OverstayMinutes == penalty.Minutes {
		return false, nil
	}
	return s.repo.Booking.UpdateOverstay(ctx, b.ID, penalty.Minutes, penalty.Amount, now)
}

func (s *lifecycleService) hourlyRate(ctx context.Context, repo *repository.Repository, orgID uuid.UUID, rates map[uuid.UUID]float64) (float64, error) {
	if rate, ok := rates[orgID]; ok {
		return rate, nil
	}
	org, err := loadOrganization(ctx, repo, orgID)
	if err != nil {
		return 0, err
	}
	rates[orgID] = org.HourlyRate
	return org.HourlyRate, nil
}
