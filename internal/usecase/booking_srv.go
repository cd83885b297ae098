package usecase

import (
	"context"
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"
	"parking-booking/internal/dto/request"
	"parking-booking/internal/dto/response"
	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type BookingService interface {
	// Visitor / member endpoints
	CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	ExtendBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.ExtendBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
	PayBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.PayBookingRequest) (*response.PaymentResponse, error)
	SettleOverstayAndRebook(ctx context.Context, userID, bookingID uuid.UUID, req *request.SettleOverstayRequest) (*response.SettleResponse, error)

	// Gate actions
	MarkEntry(ctx context.Context, userID, bookingID uuid.UUID, req *request.EntryRequest) (*response.BookingResponse, error)
	MarkExit(ctx context.Context, userID, bookingID uuid.UUID, req *request.ExitRequest) (*response.ExitResponse, error)

	// Reads
	GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	ListPayments(ctx context.Context, userID, bookingID uuid.UUID) ([]response.PaymentResponse, error)
	CheckAvailability(ctx context.Context, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
}

type bookingService struct {
	*deps
	ledger *slotLedger
	alloc  *allocator
	log    *zap.Logger
}

func newBookingService(d *deps, ledger *slotLedger, alloc *allocator, log *zap.Logger) *bookingService {
	return &bookingService{
		deps:   d,
		ledger: ledger,
		alloc:  alloc,
		log:    log.With(zap.String("service", "booking")),
	}
}

// validateWindow returns the billable hours of [start, end).
func (s *bookingService) validateWindow(start, end, now time.Time) (int, error) {
	if !end.After(start) {
		return 0, fmt.Errorf("end %s not after start %s: %w",
			end.Format(time.RFC3339), start.Format(time.RFC3339), apperr.ErrInvalidWindow)
	}
	if !end.After(now) {
		return 0, fmt.Errorf("window ended at %s: %w", end.Format(time.RFC3339), apperr.ErrInvalidWindow)
	}
	if start.Before(now.Add(-s.cfg.WalkInGrace)) {
		return 0, fmt.Errorf("start %s is in the past: %w", start.Format(time.RFC3339), apperr.ErrInvalidWindow)
	}
	hours := utils.CeilHours(end.Sub(start))
	if hours > s.cfg.MaxHours {
		return 0, fmt.Errorf("%d hours exceeds the %d hour limit: %w", hours, s.cfg.MaxHours, apperr.ErrInvalidWindow)
	}
	return hours, nil
}

// price is free for members of the organization, hourly otherwise.
func price(user *entity.User, org *entity.Organization, hours int) (float64, entity.PaymentStatus) {
	if user.IsMemberOf(org.ID) {
		return 0, entity.PaymentStatusCompleted
	}
	return utils.RoundMoney(float64(hours) * org.HourlyRate), entity.PaymentStatusPending
}

// allocateAndCreate reserves a slot and persists the booking inside tx.
// Walk-ins start active and take the slot from the ledger right away.
func (s *bookingService) allocateAndCreate(ctx context.Context, tx *repository.Repository, user *entity.User, org *entity.Organization, vehicle string, start, end, now time.Time) (*entity.Booking, error) {
	hours, err := s.validateWindow(start, end, now)
	if err != nil {
		return nil, err
	}

	alloc, err := s.alloc.allocate(ctx, tx, org.ID, start, end)
	if err != nil {
		return nil, err
	}

	lotID := alloc.Lot.ID
	booking := &entity.Booking{
		BaseNoDelete:     entity.NewBaseNoDelete(now),
		Reference:        utils.GenerateBookingReference(now),
		UserID:           user.ID,
		OrganizationID:   org.ID,
		ParkingLotID:     &lotID,
		VehicleNumber:    vehicle,
		SlotNumber:       alloc.Slot,
		BookingStartTime: start,
		BookingEndTime:   end,
		DurationHours:    hours,
		BookingStatus:    entity.InitialBookingStatus(start, now),
	}
	booking.Amount, booking.PaymentStatus = price(user, org, hours)

	if err := tx.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	if booking.BookingStatus.Occupying() {
		if _, err := s.ledger.apply(ctx, tx, lotID, -1, now); err != nil {
			return nil, err
		}
	}

	s.metrics.BookingsCreated.WithLabelValues(string(booking.BookingStatus)).Inc()
	return booking, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (resp *response.BookingResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	defer func() { finishSpan(span, err) }()

	req.VehicleNumber = utils.NormalizeVehicleNumber(req.VehicleNumber)
	if err := validateRequest(s.log, "Create booking", req); err != nil {
		return nil, err
	}

	orgID, err := parseID("organization", req.OrganizationID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("organization_id", orgID.String()))

	org, err := loadOrganization(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, fmt.Errorf("organization %s: %w", orgID.String(), apperr.ErrOrganizationInactive)
	}

	user, err := loadUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var booking *entity.Booking
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		booking, err = s.allocateAndCreate(ctx, tx, user, org, req.VehicleNumber, req.StartTime, req.EndTime, now)
		return err
	})
	if err != nil {
		s.log.Warn("Booking not created",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("organization_id", orgID.String()),
		)
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.String("slot_number", booking.SlotNumber),
		zap.String("status", string(booking.BookingStatus)),
		zap.Float64("amount", booking.Amount),
	)

	result := response.BookingToResponse(booking)
	return &result, nil
}

func (s *bookingService) ExtendBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.ExtendBookingRequest) (resp *response.BookingResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.extend")
	defer func() { finishSpan(span, err) }()

	if err := validateRequest(s.log, "Extend booking", req); err != nil {
		return nil, err
	}

	now := s.now()
	var booking *entity.Booking
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		actor, err := authorize(ctx, tx, userID, b)
		if err != nil {
			return err
		}
		if _, err := b.BookingStatus.Next(entity.EventExtend); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrNotActive, err)
		}

		newEnd := b.BookingEndTime.Add(time.Duration(req.ExtraHours) * time.Hour)
		hours := utils.CeilHours(newEnd.Sub(b.BookingStartTime))
		if hours > s.cfg.MaxHours {
			return fmt.Errorf("%d hours exceeds the %d hour limit: %w", hours, s.cfg.MaxHours, apperr.ErrInvalidWindow)
		}

		if b.ParkingLotID != nil {
			if err := tx.Booking.LockSlot(ctx, *b.ParkingLotID, b.SlotNumber); err != nil {
				return err
			}
			conflict, err := tx.Booking.HasConflict(ctx, *b.ParkingLotID, b.SlotNumber, b.BookingStartTime, newEnd, &b.ID)
			if err != nil {
				return fmt.Errorf("check slot conflict: %w", err)
			}
			if conflict {
				return fmt.Errorf("slot %s taken before %s: %w",
					b.SlotNumber, newEnd.Format(time.RFC3339), apperr.ErrSlotConflict)
			}
		}

		org, err := loadOrganization(ctx, tx, b.OrganizationID)
		if err != nil {
			return err
		}
		owner := actor
		if owner.ID != b.UserID {
			if owner, err = loadUser(ctx, tx, b.UserID); err != nil {
				return err
			}
		}

		amount, _ := price(owner, org, hours)
		if amount > b.Amount {
			b.PaymentStatus = entity.PaymentStatusPending
		}
		b.Amount = amount
		b.BookingEndTime = newEnd
		b.DurationHours = hours
		b.UpdatedAt = now

		ok, err := tx.Booking.UpdateExtension(ctx, b)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("booking %s: %w", b.ID.String(), apperr.ErrNotActive)
		}
		booking = b
		return nil
	})
	if err != nil {
		s.log.Warn("Booking not extended",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Int("extra_hours", req.ExtraHours),
		)
		return nil, err
	}

	s.log.Info("Booking extended",
		zap.String("booking_id", booking.ID.String()),
		zap.Time("end", booking.BookingEndTime),
		zap.Int("duration_hours", booking.DurationHours),
	)

	result := response.BookingToResponse(booking)
	return &result, nil
}

// CancelBooking is a no-op for bookings that are already terminal.
func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	now := s.now()
	var booking *entity.Booking
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, userID, b); err != nil {
			return err
		}
		booking = b
		if b.BookingStatus.IsTerminal() {
			return nil
		}

		from := b.BookingStatus
		to, err := from.Next(entity.EventCancel)
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidTransition, err)
		}
		if err := s.transition(ctx, tx, b, from, to, now); err != nil {
			return err
		}

		if b.PaymentStatus == entity.PaymentStatusCompleted && b.Amount > 0 {
			if err := tx.Booking.UpdatePaymentStatus(ctx, b.ID, entity.PaymentStatusRefunded, now); err != nil {
				return err
			}
			b.PaymentStatus = entity.PaymentStatusRefunded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("status", string(booking.BookingStatus)),
	)

	result := response.BookingToResponse(booking)
	return &result, nil
}

// transition moves b from -> to with a compare-and-swap and keeps the ledger
// in step: entering an occupying status takes the slot, leaving one returns it.
func (s *bookingService) transition(ctx context.Context, tx *repository.Repository, b *entity.Booking, from, to entity.BookingStatus, now time.Time) error {
	ok, err := tx.Booking.TransitionStatus(ctx, b.ID, from, to, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("booking %s left %s concurrently: %w", b.ID.String(), from, apperr.ErrInvalidTransition)
	}

	if err := s.settleLedger(ctx, tx, b, from, to, now); err != nil {
		return err
	}

	b.BookingStatus = to
	b.UpdatedAt = now
	s.metrics.Transition(string(from), string(to))
	return nil
}

func (s *bookingService) settleLedger(ctx context.Context, tx *repository.Repository, b *entity.Booking, from, to entity.BookingStatus, now time.Time) error {
	if b.ParkingLotID == nil {
		return nil
	}
	delta := 0
	switch {
	case !from.Occupying() && to.Occupying():
		delta = -1
	case from.Occupying() && !to.Occupying():
		delta = 1
	}
	if delta == 0 {
		return nil
	}
	_, err := s.ledger.apply(ctx, tx, *b.ParkingLotID, delta, now)
	return err
}

func (s *bookingService) MarkEntry(ctx context.Context, userID, bookingID uuid.UUID, req *request.EntryRequest) (*response.BookingResponse, error) {
	now := s.now()
	at := now
	if req.EntryTime != nil {
		if req.EntryTime.After(now) {
			return nil, fmt.Errorf("%w: entry time %s is in the future", apperr.ErrValidation, req.EntryTime.Format(time.RFC3339))
		}
		at = *req.EntryTime
	}

	var booking *entity.Booking
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, userID, b); err != nil {
			return err
		}

		switch b.BookingStatus {
		case entity.BookingStatusConfirmed:
			if now.Before(b.BookingStartTime) || at.Before(b.BookingStartTime) {
				return fmt.Errorf("entry at %s, booking starts %s: %w",
					at.Format(time.RFC3339), b.BookingStartTime.Format(time.RFC3339), apperr.ErrEarlyEntry)
			}
			if err := s.transition(ctx, tx, b, entity.BookingStatusConfirmed, entity.BookingStatusActive, now); err != nil {
				return err
			}
		case entity.BookingStatusActive:
		case entity.BookingStatusOverstay, entity.BookingStatusCompleted, entity.BookingStatusCancelled:
			return fmt.Errorf("entry on %s booking: %w", b.BookingStatus, apperr.ErrInvalidTransition)
		}

		if b.EntryTime == nil {
			if err := tx.Booking.SetEntryTime(ctx, b.ID, at, now); err != nil {
				return err
			}
			b.EntryTime = &at
		}
		booking = b
		return nil
	})
	if err != nil {
		s.log.Warn("Entry not recorded", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.log.Info("Vehicle entered",
		zap.String("booking_id", booking.ID.String()),
		zap.String("slot_number", booking.SlotNumber),
		zap.Time("entry_time", *booking.EntryTime),
	)

	result := response.BookingToResponse(booking)
	return &result, nil
}

// MarkExit completes an active or overstay booking. Exiting a booking that is
// already completed or cancelled is a no-op. An exit after the end time is priced as an
// overstay even when no sweep has flagged it yet.
func (s *bookingService) MarkExit(ctx context.Context, userID, bookingID uuid.UUID, req *request.ExitRequest) (resp *response.ExitResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.exit")
	defer func() { finishSpan(span, err) }()

	if err := validateRequest(s.log, "Exit", req); err != nil {
		return nil, err
	}

	now := s.now()
	at := now
	if req.ExitTime != nil {
		if req.ExitTime.After(now) {
			return nil, fmt.Errorf("%w: exit time %s is in the future", apperr.ErrValidation, req.ExitTime.Format(time.RFC3339))
		}
		at = *req.ExitTime
	}

	var (
		booking *entity.Booking
		payment *entity.Payment
	)
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		actor, err := authorize(ctx, tx, userID, b)
		if err != nil {
			return err
		}
		booking = b
		if b.BookingStatus.IsTerminal() {
			return nil
		}

		from := b.BookingStatus
		if _, err := from.Next(entity.EventExit); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidTransition, err)
		}

		var penalty *Penalty
		if from == entity.BookingStatusOverstay || at.After(b.BookingEndTime) {
			org, err := loadOrganization(ctx, tx, b.OrganizationID)
			if err != nil {
				return err
			}
			p, err := CalculatePenalty(b.BookingEndTime, at, org.HourlyRate, s.cfg.PenaltyMultiplier)
			if err != nil {
				return err
			}
			penalty = &p
		}

		if err := s.complete(ctx, tx, b, from, at, penalty, now); err != nil {
			return err
		}

		if penalty != nil {
			method := entity.PaymentMethodCash
			if req.PaymentMethod != "" {
				method = entity.PaymentMethod(req.PaymentMethod)
			}
			payment, err = s.recordPenalty(ctx, tx, b, actor, penalty.Amount, method, req.TransactionID, actor.UserType == entity.UserTypeWatchman, now)
			if err != nil {
				return err
			}
			if payment.Status == entity.PaymentStatusPending && b.PaymentStatus != entity.PaymentStatusPending {
				if err := tx.Booking.UpdatePaymentStatus(ctx, b.ID, entity.PaymentStatusPending, now); err != nil {
					return err
				}
				b.PaymentStatus = entity.PaymentStatusPending
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Exit not recorded", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.log.Info("Vehicle exited",
		zap.String("booking_id", booking.ID.String()),
		zap.String("slot_number", booking.SlotNumber),
		zap.Bool("penalty", payment != nil),
	)

	result := &response.ExitResponse{Booking: response.BookingToResponse(booking)}
	if payment != nil {
		p := response.PaymentToResponse(payment)
		result.PenaltyPayment = &p
	}
	return result, nil
}

// complete closes b (active or overstay) at exit time at, adds the penalty to
// the booking amount and returns the slot to the ledger.
func (s *bookingService) complete(ctx context.Context, tx *repository.Repository, b *entity.Booking, from entity.BookingStatus, at time.Time, penalty *Penalty, now time.Time) error {
	b.ExitTime = &at
	b.UpdatedAt = now
	if penalty != nil {
		minutes, amount := penalty.Minutes, penalty.Amount
		b.OverstayMinutes = &minutes
		b.PenaltyAmount = &amount
		b.Amount = utils.RoundMoney(b.Amount + amount)
	}

	ok, err := tx.Booking.Complete(ctx, b, from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("booking %s left %s concurrently: %w", b.ID.String(), from, apperr.ErrInvalidTransition)
	}

	if err := s.settleLedger(ctx, tx, b, from, entity.BookingStatusCompleted, now); err != nil {
		return err
	}
	b.BookingStatus = entity.BookingStatusCompleted
	s.metrics.Transition(string(from), string(entity.BookingStatusCompleted))
	return nil
}

func (s *bookingService) recordPenalty(ctx context.Context, tx *repository.Repository, b *entity.Booking, actor *entity.User, amount float64, method entity.PaymentMethod, txnID *string, collected bool, now time.Time) (*entity.Payment, error) {
	payment := &entity.Payment{
		BaseNoDelete:  entity.NewBaseNoDelete(now),
		BookingID:     b.ID,
		Amount:        amount,
		Method:        method,
		TransactionID: txnID,
		Status:        entity.PaymentStatusPending,
		PaymentType:   entity.PaymentTypePenalty,
	}
	if actor.UserType == entity.UserTypeWatchman {
		payment.WatchmanID = &actor.ID
	}
	if collected {
		payment.Status = entity.PaymentStatusCompleted
		s.metrics.PenaltyCollected.Add(amount)
	}

	if err := tx.Payment.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// SettleOverstayAndRebook pays the penalty of an overstay booking, completes
// it and, when asked, allocates a follow-up booking. Everything runs in one
// transaction: if the new window cannot be booked the old booking stays in
// overstay untouched.
func (s *bookingService) SettleOverstayAndRebook(ctx context.Context, userID, bookingID uuid.UUID, req *request.SettleOverstayRequest) (resp *response.SettleResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.settle_overstay")
	defer func() { finishSpan(span, err) }()

	if req.Rebook != nil {
		req.Rebook.VehicleNumber = utils.NormalizeVehicleNumber(req.Rebook.VehicleNumber)
	}
	if err := validateRequest(s.log, "Settle overstay", req); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		booking    *entity.Booking
		payment    *entity.Payment
		newBooking *entity.Booking
	)
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		actor, err := authorize(ctx, tx, userID, b)
		if err != nil {
			return err
		}
		if b.BookingStatus != entity.BookingStatusOverstay {
			return fmt.Errorf("booking %s is %s: %w", b.ID.String(), b.BookingStatus, apperr.ErrNotOverstay)
		}

		org, err := loadOrganization(ctx, tx, b.OrganizationID)
		if err != nil {
			return err
		}

		var owner *entity.User
		if req.Rebook != nil {
			// reject an infeasible window before touching the old booking
			if _, err := s.validateWindow(req.Rebook.StartTime, req.Rebook.EndTime, now); err != nil {
				return err
			}
			if owner, err = loadUser(ctx, tx, b.UserID); err != nil {
				return err
			}
		}

		penalty, err := CalculatePenalty(b.BookingEndTime, now, org.HourlyRate, s.cfg.PenaltyMultiplier)
		if err != nil {
			return err
		}
		if _, err := b.BookingStatus.Next(entity.EventSettle); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidTransition, err)
		}
		if err := s.complete(ctx, tx, b, entity.BookingStatusOverstay, now, &penalty, now); err != nil {
			return err
		}

		payment, err = s.recordPenalty(ctx, tx, b, actor, penalty.Amount,
			entity.PaymentMethod(req.Method), req.TransactionID, true, now)
		if err != nil {
			return err
		}
		booking = b

		if req.Rebook == nil {
			return nil
		}
		vehicle := req.Rebook.VehicleNumber
		if vehicle == "" {
			vehicle = b.VehicleNumber
		}
		newBooking, err = s.allocateAndCreate(ctx, tx, owner, org, vehicle, req.Rebook.StartTime, req.Rebook.EndTime, now)
		return err
	})
	if err != nil {
		s.log.Warn("Overstay not settled", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.log.Info("Overstay settled",
		zap.String("booking_id", booking.ID.String()),
		zap.Float64("penalty", payment.Amount),
		zap.Bool("rebooked", newBooking != nil),
	)

	result := &response.SettleResponse{
		PenaltyPayment: response.PaymentToResponse(payment),
		Booking:        response.BookingToResponse(booking),
	}
	if newBooking != nil {
		nb := response.BookingToResponse(newBooking)
		result.NewBooking = &nb
	}
	return result, nil
}

// PayBooking records a simulated booking payment for what is still owed on
// the booking itself, penalties excluded.
func (s *bookingService) PayBooking(ctx context.Context, userID, bookingID uuid.UUID, req *request.PayBookingRequest) (*response.PaymentResponse, error) {
	if err := validateRequest(s.log, "Pay booking", req); err != nil {
		return nil, err
	}

	now := s.now()
	var payment *entity.Payment
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		b, err := loadBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, userID, b); err != nil {
			return err
		}
		if b.BookingStatus == entity.BookingStatusCancelled {
			return fmt.Errorf("pay cancelled booking %s: %w", b.ID.String(), apperr.ErrInvalidTransition)
		}
		if b.PaymentStatus != entity.PaymentStatusPending {
			return fmt.Errorf("booking %s payment is %s: %w", b.ID.String(), b.PaymentStatus, apperr.ErrInvalidTransition)
		}

		payments, err := tx.Payment.FindByBookingID(ctx, b.ID)
		if err != nil {
			return err
		}
		due := b.Amount
		if b.PenaltyAmount != nil {
			due -= *b.PenaltyAmount
		}
		for _, p := range payments {
			if p.PaymentType == entity.PaymentTypeBooking && p.Status == entity.PaymentStatusCompleted {
				due -= p.Amount
			}
		}

		payment = &entity.Payment{
			BaseNoDelete:  entity.NewBaseNoDelete(now),
			BookingID:     b.ID,
			Amount:        utils.RoundMoney(max(due, 0)),
			Method:        entity.PaymentMethod(req.Method),
			TransactionID: req.TransactionID,
			// no gateway: payments settle immediately
			Status:      entity.PaymentStatusCompleted,
			PaymentType: entity.PaymentTypeBooking,
		}
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return err
		}
		return tx.Booking.UpdatePaymentStatus(ctx, b.ID, entity.PaymentStatusCompleted, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking paid",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Float64("amount", payment.Amount),
	)

	result := response.PaymentToResponse(payment)
	return &result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	b, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID.String(), apperr.ErrNotFound)
	}
	if _, err := authorize(ctx, s.repo, userID, b); err != nil {
		return nil, err
	}

	result := response.BookingToResponse(b)
	return &result, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	data := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		data[i] = response.BookingToResponse(b)
	}

	return response.NewPaginatedResponse(data, max(req.Page, 1), limit, total), nil
}

func (s *bookingService) ListPayments(ctx context.Context, userID, bookingID uuid.UUID) ([]response.PaymentResponse, error) {
	b, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID.String(), apperr.ErrNotFound)
	}
	if _, err := authorize(ctx, s.repo, userID, b); err != nil {
		return nil, err
	}

	payments, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	out := make([]response.PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = response.PaymentToResponse(p)
	}
	return out, nil
}

// CheckAvailability lists the free labels of every active lot for a window,
// in allocation order.
func (s *bookingService) CheckAvailability(ctx context.Context, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if err := validateRequest(s.log, "Check availability", req); err != nil {
		return nil, err
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("end %s not after start %s: %w",
			req.EndTime.Format(time.RFC3339), req.StartTime.Format(time.RFC3339), apperr.ErrInvalidWindow)
	}

	orgID, err := parseID("organization", req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if _, err := loadOrganization(ctx, s.repo, orgID); err != nil {
		return nil, err
	}

	lots, err := s.repo.ParkingLot.FindActiveByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("find active parking lots: %w", err)
	}

	result := &response.AvailabilityResponse{
		OrganizationID: orgID.String(),
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Lots:           make([]response.LotAvailability, 0, len(lots)),
	}
	for _, lot := range lots {
		free, err := freeSlots(ctx, s.repo, lot, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		result.Lots = append(result.Lots, response.LotAvailability{
			ParkingLotID:   lot.ID.String(),
			Name:           lot.Name,
			PriorityOrder:  lot.PriorityOrder,
			TotalSlots:     lot.TotalSlots,
			AvailableSlots: lot.AvailableSlots,
			FreeSlots:      free,
		})
	}

	return result, nil
}
