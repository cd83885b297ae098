package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is used by rows that the owning service soft-deletes (users, organizations).
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewBaseNoDelete(now time.Time) BaseNoDelete {
	return BaseNoDelete{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
