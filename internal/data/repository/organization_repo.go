package repository

import (
	"context"
	"errors"
	"fmt"

	"parking-booking/internal/data/entity"
	"parking-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OrganizationRepository is read-only here; organization CRUD lives elsewhere.
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
}

type organizationRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewOrganizationRepository(db database.Querier, log *zap.Logger) OrganizationRepository {
	return &organizationRepository{
		db:  db,
		log: log.With(zap.String("repository", "organization")),
	}
}

func (r *organizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	query := `
		SELECT id, name, hourly_rate, admin_user_id, is_active, created_at, updated_at, deleted_at
		FROM organizations
		WHERE id = $1 AND deleted_at IS NULL
	`

	var org entity.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.HourlyRate,
		&org.AdminUserID,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
		&org.DeletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find organization by ID",
			zap.Error(err),
			zap.String("organization_id", id.String()),
		)
		return nil, fmt.Errorf("find organization by ID %s: %w", id.String(), err)
	}

	return &org, nil
}
