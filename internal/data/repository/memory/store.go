// Package memory provides an in-memory implementation of the repository
// interfaces, used by the engine tests and for running the service without
// PostgreSQL.
//
// Transactions are serialized: WithinTx holds the store lock for the whole
// callback and restores a snapshot when the callback fails. Rows are copied
// on every read and write so callers never alias stored state.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	orgs     map[uuid.UUID]entity.Organization
	users    map[uuid.UUID]entity.User
	lots     map[uuid.UUID]entity.ParkingLot
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
}

func NewStore() *Store {
	return &Store{
		orgs:     make(map[uuid.UUID]entity.Organization),
		users:    make(map[uuid.UUID]entity.User),
		lots:     make(map[uuid.UUID]entity.ParkingLot),
		bookings: make(map[uuid.UUID]entity.Booking),
		payments: make(map[uuid.UUID]entity.Payment),
	}
}

// Repository returns a repository set backed by the store.
func (s *Store) Repository() *repository.Repository {
	return s.repository(false)
}

func (s *Store) repository(inTx bool) *repository.Repository {
	h := handle{s: s, inTx: inTx}
	return &repository.Repository{
		Organization: organizationRepo{h},
		User:         userRepo{h},
		ParkingLot:   parkingLotRepo{h},
		Booking:      bookingRepo{h},
		Payment:      paymentRepo{h},
		Transactor:   transactor{h},
	}
}

// AddOrganization seeds an organization. Organization CRUD is owned elsewhere.
func (s *Store) AddOrganization(org entity.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = org
}

func (s *Store) AddUser(user entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// Bookings returns a copy of every stored booking.
func (s *Store) Bookings() []entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.bookings))
}

type snapshot struct {
	orgs     map[uuid.UUID]entity.Organization
	users    map[uuid.UUID]entity.User
	lots     map[uuid.UUID]entity.ParkingLot
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		orgs:     maps.Clone(s.orgs),
		users:    maps.Clone(s.users),
		lots:     maps.Clone(s.lots),
		bookings: maps.Clone(s.bookings),
		payments: maps.Clone(s.payments),
	}
}

func (s *Store) restore(snap snapshot) {
	s.orgs = snap.orgs
	s.users = snap.users
	s.lots = snap.lots
	s.bookings = snap.bookings
	s.payments = snap.payments
}

// handle is shared by every repo of one repository set. Inside a
// transaction the store lock is already held.
type handle struct {
	s    *Store
	inTx bool
}

func (h handle) lock() func() {
	if h.inTx {
		return func() {}
	}
	h.s.mu.Lock()
	return h.s.mu.Unlock
}

type transactor struct {
	handle
}

func (t transactor) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if t.inTx {
		return fn(t.s.repository(true))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	snap := t.s.snapshot()
	if err := fn(t.s.repository(true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
