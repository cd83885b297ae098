package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// openBookingFilter selects bookings that still hold an overlap window.
const openBookingFilter = `booking_status NOT IN ('completed', 'cancelled')`

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// LockByID reads the row FOR UPDATE; only meaningful inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// Overlap queries. Intervals are half-open [start, end).
	FindOccupiedSlots(ctx context.Context, lotID uuid.UUID, start, end time.Time) ([]string, error)
	HasConflict(ctx context.Context, lotID uuid.UUID, slot string, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	// LockSlot serializes writers of (lotID, slot) until the surrounding transaction ends.
	LockSlot(ctx context.Context, lotID uuid.UUID, slot string) error
	CountOccupying(ctx context.Context, lotID uuid.UUID) (int, error)

	// Sweep queries
	FindDueForActivation(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
	FindDueForOverstay(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
	FindByStatus(ctx context.Context, status entity.BookingStatus, limit int) ([]*entity.Booking, error)

	// Compare-and-swap writers: false means the row was not in the expected
	// status any more and nothing was written.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, now time.Time) (bool, error)
	UpdateExtension(ctx context.Context, booking *entity.Booking) (bool, error)
	Complete(ctx context.Context, booking *entity.Booking, from entity.BookingStatus) (bool, error)
	UpdateOverstay(ctx context.Context, id uuid.UUID, minutes int, penalty float64, now time.Time) (bool, error)

	SetEntryTime(ctx context.Context, id uuid.UUID, entry, now time.Time) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, now time.Time) error
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, reference, user_id, organization_id, parking_lot_id, vehicle_number, slot_number,
	booking_start_time, booking_end_time, duration_hours, amount, payment_status, booking_status,
	entry_time, exit_time, overstay_minutes, penalty_amount, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.OrganizationID,
		&booking.ParkingLotID,
		&booking.VehicleNumber,
		&booking.SlotNumber,
		&booking.BookingStartTime,
		&booking.BookingEndTime,
		&booking.DurationHours,
		&booking.Amount,
		&booking.PaymentStatus,
		&booking.BookingStatus,
		&booking.EntryTime,
		&booking.ExitTime,
		&booking.OverstayMinutes,
		&booking.PenaltyAmount,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, op string, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Reference,
		booking.UserID,
		booking.OrganizationID,
		booking.ParkingLotID,
		booking.VehicleNumber,
		booking.SlotNumber,
		booking.BookingStartTime,
		booking.BookingEndTime,
		booking.DurationHours,
		booking.Amount,
		booking.PaymentStatus,
		booking.BookingStatus,
		booking.EntryTime,
		booking.ExitTime,
		booking.OverstayMinutes,
		booking.PenaltyAmount,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if database.IsViolation(err, database.CodeExclusionViolation) {
		r.log.Warn("Booking rejected by overlap constraint",
			zap.String("slot_number", booking.SlotNumber),
			zap.Time("start", booking.BookingStartTime),
			zap.Time("end", booking.BookingEndTime),
		)
		return fmt.Errorf("create booking on slot %s: %w", booking.SlotNumber, apperr.ErrSlotConflict)
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference", booking.Reference),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.Reference, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("lock booking %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryBookings(ctx, "find bookings by user ID "+userID.String(), query, userID, limit, offset)
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindOccupiedSlots(ctx context.Context, lotID uuid.UUID, start, end time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT slot_number
		FROM bookings
		WHERE parking_lot_id = $1
		  AND ` + openBookingFilter + `
		  AND booking_start_time < $3
		  AND booking_end_time > $2
	`

	rows, err := r.db.Query(ctx, query, lotID, start, end)
	if err != nil {
		r.log.Error("Failed to find occupied slots",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
		)
		return nil, fmt.Errorf("find occupied slots of lot %s: %w", lotID.String(), err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			r.log.Error("Failed to scan slot row", zap.Error(err))
			return nil, fmt.Errorf("scan slot row: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func (r *bookingRepository) HasConflict(ctx context.Context, lotID uuid.UUID, slot string, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE parking_lot_id = $1
			  AND slot_number = $2
			  AND ` + openBookingFilter + `
			  AND booking_start_time < $4
			  AND booking_end_time > $3
			  AND ($5::uuid IS NULL OR id <> $5::uuid)
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, lotID, slot, start, end, excludeID).Scan(&exists); err != nil {
		r.log.Error("Failed to check slot conflict",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
			zap.String("slot_number", slot),
		)
		return false, fmt.Errorf("check conflict on slot %s: %w", slot, err)
	}

	return exists, nil
}

func (r *bookingRepository) LockSlot(ctx context.Context, lotID uuid.UUID, slot string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	if _, err := r.db.Exec(ctx, query, lotID.String()+"/"+slot); err != nil {
		r.log.Error("Failed to lock slot",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
			zap.String("slot_number", slot),
		)
		return fmt.Errorf("lock slot %s: %w", slot, err)
	}

	return nil
}

func (r *bookingRepository) CountOccupying(ctx context.Context, lotID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE parking_lot_id = $1 AND booking_status IN ('active', 'overstay')
	`

	var count int
	if err := r.db.QueryRow(ctx, query, lotID).Scan(&count); err != nil {
		r.log.Error("Failed to count occupying bookings",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
		)
		return 0, fmt.Errorf("count occupying bookings of lot %s: %w", lotID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindDueForActivation(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = 'confirmed' AND booking_start_time <= $1
		ORDER BY booking_start_time
		LIMIT $2
	`
	return r.queryBookings(ctx, "find bookings due for activation", query, now, limit)
}

func (r *bookingRepository) FindDueForOverstay(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = 'active' AND booking_end_time < $1
		ORDER BY booking_end_time
		LIMIT $2
	`
	return r.queryBookings(ctx, "find bookings due for overstay", query, now, limit)
}

func (r *bookingRepository) FindByStatus(ctx context.Context, status entity.BookingStatus, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = $1
		ORDER BY booking_end_time
		LIMIT $2
	`
	return r.queryBookings(ctx, "find bookings by status "+string(status), query, status, limit)
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, now time.Time) (bool, error) {
	query := `UPDATE bookings SET booking_status = $3, updated_at = $4 WHERE id = $1 AND booking_status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to, now)
	if err != nil {
		r.log.Error("Failed to transition booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition booking %s from %s to %s: %w", id.String(), from, to, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdateExtension(ctx context.Context, booking *entity.Booking) (bool, error) {
	query := `
		UPDATE bookings
		SET booking_end_time = $2, duration_hours = $3, amount = $4, payment_status = $5, updated_at = $6
		WHERE id = $1 AND booking_status = 'active'
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingEndTime,
		booking.DurationHours,
		booking.Amount,
		booking.PaymentStatus,
		booking.UpdatedAt,
	)
	if database.IsViolation(err, database.CodeExclusionViolation) {
		return false, fmt.Errorf("extend booking %s: %w", booking.ID.String(), apperr.ErrSlotConflict)
	}
	if err != nil {
		r.log.Error("Failed to extend booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return false, fmt.Errorf("extend booking %s: %w", booking.ID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) Complete(ctx context.Context, booking *entity.Booking, from entity.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET booking_status = 'completed', exit_time = $3, overstay_minutes = $4,
		    penalty_amount = $5, amount = $6, updated_at = $7
		WHERE id = $1 AND booking_status = $2
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		from,
		booking.ExitTime,
		booking.OverstayMinutes,
		booking.PenaltyAmount,
		booking.Amount,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to complete booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return false, fmt.Errorf("complete booking %s: %w", booking.ID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdateOverstay(ctx context.Context, id uuid.UUID, minutes int, penalty float64, now time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET overstay_minutes = $2, penalty_amount = $3, updated_at = $4
		WHERE id = $1 AND booking_status = 'overstay'
	`

	result, err := r.db.Exec(ctx, query, id, minutes, penalty, now)
	if err != nil {
		r.log.Error("Failed to update overstay",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("update overstay of booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) SetEntryTime(ctx context.Context, id uuid.UUID, entry, now time.Time) error {
	query := `UPDATE bookings SET entry_time = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, entry, now)
	if err != nil {
		r.log.Error("Failed to set entry time",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("set entry time of booking %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id.String(), apperr.ErrNotFound)
	}

	return nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, now time.Time) error {
	query := `UPDATE bookings SET payment_status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status, now)
	if err != nil {
		r.log.Error("Failed to update booking payment status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s payment status to %s: %w", id.String(), status, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id.String(), apperr.ErrNotFound)
	}

	return nil
}
