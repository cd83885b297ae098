package usecase

import (
	"context"
	"fmt"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"
	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func validateRequest(log *zap.Logger, op string, req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		log.Warn(op+" validation failed", zap.Any("errors", errs))
		return fmt.Errorf("%w: %s", apperr.ErrValidation, utils.FormatValidationErrors(errs))
	}
	return nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s ID %q", apperr.ErrValidation, kind, raw)
	}
	return id, nil
}

func loadOrganization(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.Organization, error) {
	org, err := repo.Organization.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}
	if org == nil {
		return nil, fmt.Errorf("organization %s: %w", id.String(), apperr.ErrNotFound)
	}
	return org, nil
}

func loadUser(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.User, error) {
	user, err := repo.User.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id.String(), apperr.ErrNotFound)
	}
	return user, nil
}

// loadBooking locks the row when repo is bound to a transaction.
func loadBooking(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*entity.Booking, error) {
	booking, err := repo.Booking.LockByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id.String(), apperr.ErrNotFound)
	}
	return booking, nil
}

// isStaffOf reports whether user works the gates or the desk of orgID.
func isStaffOf(user *entity.User, orgID uuid.UUID) bool {
	switch user.UserType {
	case entity.UserTypeWatchman, entity.UserTypeAdmin:
		return user.OrganizationID != nil && *user.OrganizationID == orgID
	case entity.UserTypeVisitor, entity.UserTypeOrganizationMember:
		return false
	default:
		return false
	}
}

// authorize loads the acting user and checks that they own the booking or
// are staff of its organization.
func authorize(ctx context.Context, repo *repository.Repository, actorID uuid.UUID, booking *entity.Booking) (*entity.User, error) {
	actor, err := repo.User.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("user %s: %w", actorID.String(), apperr.ErrForbidden)
	}
	if actor.ID != booking.UserID && !isStaffOf(actor, booking.OrganizationID) {
		return nil, fmt.Errorf("user %s on booking %s: %w", actorID.String(), booking.ID.String(), apperr.ErrForbidden)
	}
	return actor, nil
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
