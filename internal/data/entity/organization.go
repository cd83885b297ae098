package entity

import "github.com/google/uuid"

type Organization struct {
	Base
	Name        string    `db:"name"`
	HourlyRate  float64   `db:"hourly_rate"`
	AdminUserID uuid.UUID `db:"admin_user_id"`
	IsActive    bool      `db:"is_active"`
}
