package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		hourly_rate NUMERIC(10,2) NOT NULL CHECK (hourly_rate >= 0),
		admin_user_id UUID NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		user_type VARCHAR(32) NOT NULL
			CHECK (user_type IN ('visitor', 'organization_member', 'watchman', 'admin')),
		organization_id UUID REFERENCES organizations(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS parking_lots (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		total_slots INTEGER NOT NULL CHECK (total_slots >= 1),
		available_slots INTEGER NOT NULL,
		priority_order INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (organization_id, name),
		CHECK (available_slots BETWEEN 0 AND total_slots)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_parking_lots_org_priority
		ON parking_lots(organization_id, priority_order, id)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		reference VARCHAR(40) NOT NULL UNIQUE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		parking_lot_id UUID REFERENCES parking_lots(id) ON DELETE SET NULL,
		vehicle_number VARCHAR(20) NOT NULL,
		slot_number VARCHAR(40) NOT NULL,
		booking_start_time TIMESTAMPTZ NOT NULL,
		booking_end_time TIMESTAMPTZ NOT NULL,
		duration_hours INTEGER NOT NULL,
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		payment_status VARCHAR(16) NOT NULL
			CHECK (payment_status IN ('pending', 'completed', 'refunded')),
		booking_status VARCHAR(16) NOT NULL
			CHECK (booking_status IN ('confirmed', 'active', 'overstay', 'completed', 'cancelled')),
		entry_time TIMESTAMPTZ,
		exit_time TIMESTAMPTZ,
		overstay_minutes INTEGER,
		penalty_amount NUMERIC(12,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (booking_end_time > booking_start_time)
	)`,

	// Backstop for the allocator: two open bookings can never share a slot
	// label in a lot over intersecting [start, end) windows.
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_slot_overlap') THEN
			ALTER TABLE bookings ADD CONSTRAINT bookings_no_slot_overlap
				EXCLUDE USING gist (
					parking_lot_id WITH =,
					slot_number WITH =,
					tstzrange(booking_start_time, booking_end_time, '[)') WITH &&
				) WHERE (booking_status NOT IN ('completed', 'cancelled'));
		END IF;
	END $$`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_lot_status ON bookings(parking_lot_id, booking_status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_start ON bookings(booking_status, booking_start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_end ON bookings(booking_status, booking_end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_created ON bookings(user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
		method VARCHAR(16) NOT NULL,
		transaction_id VARCHAR(100),
		status VARCHAR(16) NOT NULL
			CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
		payment_type VARCHAR(16) NOT NULL CHECK (payment_type IN ('booking', 'penalty')),
		watchman_id UUID REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON payments(booking_id)`,
}

// RunMigrations applies the schema idempotently.
func RunMigrations(ctx context.Context, db Querier, log *zap.Logger) error {
	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			log.Error("Migration failed", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("run migration %d: %w", i, err)
		}
	}
	log.Info("Migrations completed", zap.Int("count", len(migrations)))
	return nil
}
