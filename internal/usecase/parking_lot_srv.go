package usecase

import (
	"context"
	"fmt"

	"parking-booking/internal/apperr"
	"parking-booking/internal/data/entity"
	"parking-booking/internal/dto/request"
	"parking-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ParkingLotService interface {
	// Admin endpoints
	CreateParkingLot(ctx context.Context, userID, orgID uuid.UUID, req *request.CreateParkingLotRequest) (*response.ParkingLotResponse, error)
	DeleteParkingLot(ctx context.Context, userID, lotID uuid.UUID) error
	RecomputeAvailability(ctx context.Context, userID, lotID uuid.UUID) (*response.ParkingLotResponse, error)
	RecomputeOrganization(ctx context.Context, userID, orgID uuid.UUID) ([]response.ParkingLotResponse, error)

	// Public
	ListParkingLots(ctx context.Context, orgID uuid.UUID) ([]response.ParkingLotResponse, error)
}

type parkingLotService struct {
	*deps
	ledger *slotLedger
	log    *zap.Logger
}

func newParkingLotService(d *deps, ledger *slotLedger, log *zap.Logger) *parkingLotService {
	return &parkingLotService{
		deps:   d,
		ledger: ledger,
		log:    log.With(zap.String("service", "parking_lot")),
	}
}

// requireAdmin checks that userID administers orgID.
func (s *parkingLotService) requireAdmin(ctx context.Context, userID uuid.UUID, org *entity.Organization) error {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", userID.String(), apperr.ErrForbidden)
	}
	if org.AdminUserID == user.ID {
		return nil
	}
	if user.UserType == entity.UserTypeAdmin && user.OrganizationID != nil && *user.OrganizationID == org.ID {
		return nil
	}
	return fmt.Errorf("user %s on organization %s: %w", userID.String(), org.ID.String(), apperr.ErrForbidden)
}

func (s *parkingLotService) CreateParkingLot(ctx context.Context, userID, orgID uuid.UUID, req *request.CreateParkingLotRequest) (*response.ParkingLotResponse, error) {
	if err := validateRequest(s.log, "Create parking lot", req); err != nil {
		return nil, err
	}

	org, err := loadOrganization(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, userID, org); err != nil {
		return nil, err
	}

	if SanitizeLotName(req.Name) == "" {
		return nil, fmt.Errorf("%w: name: This field is required", apperr.ErrValidation)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	lot := &entity.ParkingLot{
		BaseNoDelete:   entity.NewBaseNoDelete(s.now()),
		OrganizationID: orgID,
		Name:           req.Name,
		TotalSlots:     req.TotalSlots,
		AvailableSlots: req.TotalSlots,
		PriorityOrder:  req.PriorityOrder,
		IsActive:       isActive,
	}

	if err := s.repo.ParkingLot.Create(ctx, lot); err != nil {
		return nil, err
	}

	s.log.Info("Parking lot created",
		zap.String("lot_id", lot.ID.String()),
		zap.String("organization_id", orgID.String()),
		zap.String("name", lot.Name),
		zap.Int("total_slots", lot.TotalSlots),
		zap.Int("priority_order", lot.PriorityOrder),
	)

	result := response.ParkingLotToResponse(lot)
	return &result, nil
}

func (s *parkingLotService) ListParkingLots(ctx context.Context, orgID uuid.UUID) ([]response.ParkingLotResponse, error) {
	if _, err := loadOrganization(ctx, s.repo, orgID); err != nil {
		return nil, err
	}

	lots, err := s.repo.ParkingLot.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("find parking lots: %w", err)
	}
	return response.ParkingLotsToResponse(lots), nil
}

func (s *parkingLotService) lotWithAdmin(ctx context.Context, userID, lotID uuid.UUID) (*entity.ParkingLot, error) {
	lot, err := s.repo.ParkingLot.FindByID(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("find parking lot: %w", err)
	}
	if lot == nil {
		return nil, fmt.Errorf("parking lot %s: %w", lotID.String(), apperr.ErrNotFound)
	}
	org, err := loadOrganization(ctx, s.repo, lot.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, userID, org); err != nil {
		return nil, err
	}
	return lot, nil
}

// DeleteParkingLot fails with ErrLotInUse while any open booking references the lot.
func (s *parkingLotService) DeleteParkingLot(ctx context.Context, userID, lotID uuid.UUID) error {
	if _, err := s.lotWithAdmin(ctx, userID, lotID); err != nil {
		return err
	}
	if err := s.repo.ParkingLot.Delete(ctx, lotID); err != nil {
		s.log.Warn("Parking lot not deleted", zap.Error(err), zap.String("lot_id", lotID.String()))
		return err
	}
	return nil
}

func (s *parkingLotService) RecomputeAvailability(ctx context.Context, userID, lotID uuid.UUID) (*response.ParkingLotResponse, error) {
	if _, err := s.lotWithAdmin(ctx, userID, lotID); err != nil {
		return nil, err
	}
	lot, err := s.ledger.RecomputeAvailability(ctx, lotID)
	if err != nil {
		return nil, err
	}
	result := response.ParkingLotToResponse(lot)
	return &result, nil
}

func (s *parkingLotService) RecomputeOrganization(ctx context.Context, userID, orgID uuid.UUID) ([]response.ParkingLotResponse, error) {
	org, err := loadOrganization(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, userID, org); err != nil {
		return nil, err
	}
	lots, err := s.ledger.RecomputeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return response.ParkingLotsToResponse(lots), nil
}
