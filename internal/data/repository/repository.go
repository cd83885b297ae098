package repository

import (
	"context"
	"fmt"

	"parking-booking/pkg/database"

	"go.uber.org/zap"
)

// Transactor runs fn against a Repository bound to a single transaction.
// fn returning an error rolls everything back. Calling WithinTx on a
// transaction-bound Repository joins the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	Organization OrganizationRepository
	User         UserRepository
	ParkingLot   ParkingLotRepository
	Booking      BookingRepository
	Payment      PaymentRepository
	Transactor
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.Transactor = &pgTransactor{db: db, log: log}
	return repo
}

func newRepository(db database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		Organization: NewOrganizationRepository(db, log),
		User:         NewUserRepository(db, log),
		ParkingLot:   NewParkingLotRepository(db, log),
		Booking:      NewBookingRepository(db, log),
		Payment:      NewPaymentRepository(db, log),
	}
}

type pgTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		t.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin transaction: %w", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(ctx) }()

	txRepo := newRepository(tx, t.log)
	txRepo.Transactor = joinedTx{repo: txRepo}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type joinedTx struct {
	repo *Repository
}

func (j joinedTx) WithinTx(_ context.Context, fn func(tx *Repository) error) error {
	return fn(j.repo)
}
