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

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *entity.ParkingLot) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ParkingLot, error)
	// LockByID reads the row FOR UPDATE; only meaningful inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.ParkingLot, error)
	FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error)
	// FindActiveByOrganization orders by (priority_order, id), the allocation order.
	FindActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error)

	// UpdateAvailableSlots applies delta in one conditional statement and
	// returns the updated lot. Leaving [0, total_slots] yields ErrInvariantViolation.
	UpdateAvailableSlots(ctx context.Context, lotID uuid.UUID, delta int, now time.Time) (*entity.ParkingLot, error)
	SetAvailableSlots(ctx context.Context, lotID uuid.UUID, available int, now time.Time) error

	// Delete refuses while any open booking references the lot (ErrLotInUse).
	Delete(ctx context.Context, id uuid.UUID) error
}

type parkingLotRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewParkingLotRepository(db database.Querier, log *zap.Logger) ParkingLotRepository {
	return &parkingLotRepository{
		db:  db,
		log: log.With(zap.String("repository", "parking_lot")),
	}
}

const parkingLotColumns = `id, organization_id, name, total_slots, available_slots, priority_order, is_active, created_at, updated_at`

func scanParkingLot(row pgx.Row) (*entity.ParkingLot, error) {
	var lot entity.ParkingLot
	err := row.Scan(
		&lot.ID,
		&lot.OrganizationID,
		&lot.Name,
		&lot.TotalSlots,
		&lot.AvailableSlots,
		&lot.PriorityOrder,
		&lot.IsActive,
		&lot.CreatedAt,
		&lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *parkingLotRepository) Create(ctx context.Context, lot *entity.ParkingLot) error {
	query := `
		INSERT INTO parking_lots (` + parkingLotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		lot.ID,
		lot.OrganizationID,
		lot.Name,
		lot.TotalSlots,
		lot.AvailableSlots,
		lot.PriorityOrder,
		lot.IsActive,
		lot.CreatedAt,
		lot.UpdatedAt,
	)

	if database.IsViolation(err, database.CodeUniqueViolation) {
		return fmt.Errorf("create parking lot %q: %w", lot.Name, apperr.ErrDuplicateLotName)
	}
	if err != nil {
		r.log.Error("Failed to create parking lot",
			zap.Error(err),
			zap.String("organization_id", lot.OrganizationID.String()),
			zap.String("name", lot.Name),
		)
		return fmt.Errorf("create parking lot %q: %w", lot.Name, err)
	}

	return nil
}

func (r *parkingLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ParkingLot, error) {
	query := `SELECT ` + parkingLotColumns + ` FROM parking_lots WHERE id = $1`

	lot, err := scanParkingLot(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find parking lot by ID",
			zap.Error(err),
			zap.String("lot_id", id.String()),
		)
		return nil, fmt.Errorf("find parking lot by ID %s: %w", id.String(), err)
	}

	return lot, nil
}

func (r *parkingLotRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.ParkingLot, error) {
	query := `SELECT ` + parkingLotColumns + ` FROM parking_lots WHERE id = $1 FOR UPDATE`

	lot, err := scanParkingLot(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock parking lot",
			zap.Error(err),
			zap.String("lot_id", id.String()),
		)
		return nil, fmt.Errorf("lock parking lot %s: %w", id.String(), err)
	}

	return lot, nil
}

func (r *parkingLotRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	query := `
		SELECT ` + parkingLotColumns + `
		FROM parking_lots
		WHERE organization_id = $1
		ORDER BY priority_order ASC, id ASC
	`
	return r.queryLots(ctx, query, orgID)
}

func (r *parkingLotRepository) FindActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	query := `
		SELECT ` + parkingLotColumns + `
		FROM parking_lots
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY priority_order ASC, id ASC
	`
	return r.queryLots(ctx, query, orgID)
}

func (r *parkingLotRepository) queryLots(ctx context.Context, query string, orgID uuid.UUID) ([]*entity.ParkingLot, error) {
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		r.log.Error("Failed to find parking lots by organization",
			zap.Error(err),
			zap.String("organization_id", orgID.String()),
		)
		return nil, fmt.Errorf("find parking lots by organization %s: %w", orgID.String(), err)
	}
	defer rows.Close()

	var lots []*entity.ParkingLot
	for rows.Next() {
		lot, err := scanParkingLot(rows)
		if err != nil {
			r.log.Error("Failed to scan parking lot row", zap.Error(err))
			return nil, fmt.Errorf("scan parking lot row: %w", err)
		}
		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

func (r *parkingLotRepository) UpdateAvailableSlots(ctx context.Context, lotID uuid.UUID, delta int, now time.Time) (*entity.ParkingLot, error) {
	query := `
		UPDATE parking_lots
		SET available_slots = available_slots + $2, updated_at = $3
		WHERE id = $1 AND available_slots + $2 BETWEEN 0 AND total_slots
		RETURNING ` + parkingLotColumns

	lot, err := scanParkingLot(r.db.QueryRow(ctx, query, lotID, delta, now))
	if err == nil {
		return lot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to update available slots",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
			zap.Int("delta", delta),
		)
		return nil, fmt.Errorf("update available slots of lot %s: %w", lotID.String(), err)
	}

	// No row matched: either the lot is gone or the bounds check failed.
	current, findErr := r.FindByID(ctx, lotID)
	if findErr != nil {
		return nil, findErr
	}
	if current == nil {
		return nil, fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
	}

	r.log.Error("Slot ledger invariant violation",
		zap.String("lot_id", lotID.String()),
		zap.Int("delta", delta),
		zap.Int("available_slots", current.AvailableSlots),
		zap.Int("total_slots", current.TotalSlots),
	)
	return nil, fmt.Errorf("lot %s: available %d%+d outside [0, %d]: %w",
		lotID.String(), current.AvailableSlots, delta, current.TotalSlots, apperr.ErrInvariantViolation)
}

func (r *parkingLotRepository) SetAvailableSlots(ctx context.Context, lotID uuid.UUID, available int, now time.Time) error {
	query := `
		UPDATE parking_lots
		SET available_slots = $2, updated_at = $3
		WHERE id = $1 AND $2 BETWEEN 0 AND total_slots
	`

	result, err := r.db.Exec(ctx, query, lotID, available, now)
	if err != nil {
		r.log.Error("Failed to set available slots",
			zap.Error(err),
			zap.String("lot_id", lotID.String()),
			zap.Int("available_slots", available),
		)
		return fmt.Errorf("set available slots of lot %s: %w", lotID.String(), err)
	}

	if result.RowsAffected() == 0 {
		current, err := r.FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
		}
		return fmt.Errorf("lot %s: available %d outside [0, %d]: %w",
			lotID.String(), available, current.TotalSlots, apperr.ErrInvariantViolation)
	}

	return nil
}

func (r *parkingLotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM parking_lots
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE parking_lot_id = $1 AND ` + openBookingFilter + `
		)
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete parking lot",
			zap.Error(err),
			zap.String("lot_id", id.String()),
		)
		return fmt.Errorf("delete parking lot %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("parking lot %s: %w", id.String(), apperr.ErrNotFound)
		}
		return fmt.Errorf("delete parking lot %s: %w", id.String(), apperr.ErrLotInUse)
	}

	r.log.Info("Parking lot deleted", zap.String("lot_id", id.String()))
	return nil
}
