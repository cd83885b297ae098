package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository"
	"parking-booking/internal/data/repository/memory"
	"parking-booking/internal/dto/request"
	"parking-booking/internal/dto/response"
	"parking-booking/internal/metrics"
	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const hourlyRate = 40.0

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// at returns hh:mm on the test day.
func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	repo  *repository.Repository
	svc   *Service

	mu  sync.Mutex
	now time.Time

	org      entity.Organization
	visitor  entity.User
	member   entity.User
	watchman entity.User
	admin    entity.User
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
		now:   now,
	}
	f.repo = f.store.Repository()

	orgID := uuid.New()
	f.admin = f.addUser("Org Admin", entity.UserTypeAdmin, &orgID)
	f.org = entity.Organization{
		Base:        entity.Base{ID: orgID, CreatedAt: now, UpdatedAt: now},
		Name:        "Tech Park",
		HourlyRate:  hourlyRate,
		AdminUserID: f.admin.ID,
		IsActive:    true,
	}
	f.store.AddOrganization(f.org)

	f.visitor = f.addUser("Visitor", entity.UserTypeVisitor, nil)
	f.member = f.addUser("Member", entity.UserTypeOrganizationMember, &orgID)
	f.watchman = f.addUser("Gate", entity.UserTypeWatchman, &orgID)

	cfg := &utils.Config{Booking: utils.BookingConfig{
		MaxHours:          24,
		PenaltyMultiplier: 2,
		WalkInGrace:       15 * time.Minute,
	}}
	f.svc = NewService(f.repo, cfg, zap.NewNop(),
		WithClock(f.clock),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *fixture) addUser(name string, userType entity.UserType, orgID *uuid.UUID) entity.User {
	user := entity.User{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: day, UpdatedAt: day},
		Name:           name,
		Email:          uuid.NewString() + "@example.com",
		UserType:       userType,
		OrganizationID: orgID,
	}
	f.store.AddUser(user)
	return user
}

func (f *fixture) addLot(name string, total, priority int) *entity.ParkingLot {
	f.t.Helper()
	lot := &entity.ParkingLot{
		BaseNoDelete:   entity.NewBaseNoDelete(day),
		OrganizationID: f.org.ID,
		Name:           name,
		TotalSlots:     total,
		AvailableSlots: total,
		PriorityOrder:  priority,
		IsActive:       true,
	}
	require.NoError(f.t, f.repo.ParkingLot.Create(f.ctx, lot))
	return lot
}

func (f *fixture) lot(id uuid.UUID) *entity.ParkingLot {
	f.t.Helper()
	lot, err := f.repo.ParkingLot.FindByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, lot)
	return lot
}

func (f *fixture) booking(id string) *entity.Booking {
	f.t.Helper()
	b, err := f.repo.Booking.FindByID(f.ctx, uuid.MustParse(id))
	require.NoError(f.t, err)
	require.NotNil(f.t, b)
	return b
}

func (f *fixture) book(user entity.User, vehicle string, start, end time.Time) (*response.BookingResponse, error) {
	return f.svc.Booking.CreateBooking(f.ctx, user.ID, &request.CreateBookingRequest{
		OrganizationID: f.org.ID.String(),
		VehicleNumber:  vehicle,
		StartTime:      start,
		EndTime:        end,
	})
}

func (f *fixture) mustBook(user entity.User, vehicle string, start, end time.Time) *response.BookingResponse {
	f.t.Helper()
	b, err := f.book(user, vehicle, start, end)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) sweep(now time.Time) *response.SweepResponse {
	f.t.Helper()
	res, err := f.svc.Lifecycle.SweepLifecycle(f.ctx, now, 0)
	require.NoError(f.t, err)
	return res
}

// insert stores a confirmed booking on a chosen slot, bypassing allocation.
func (f *fixture) insert(lot *entity.ParkingLot, slot string, start, end time.Time) *entity.Booking {
	f.t.Helper()
	lotID := lot.ID
	b := &entity.Booking{
		BaseNoDelete:     entity.NewBaseNoDelete(f.clock()),
		Reference:        "PB-" + uuid.NewString()[:8],
		UserID:           f.visitor.ID,
		OrganizationID:   f.org.ID,
		ParkingLotID:     &lotID,
		VehicleNumber:    "MH12XY9999",
		SlotNumber:       slot,
		BookingStartTime: start,
		BookingEndTime:   end,
		DurationHours:    utils.CeilHours(end.Sub(start)),
		Amount:           utils.RoundMoney(float64(utils.CeilHours(end.Sub(start))) * hourlyRate),
		PaymentStatus:    entity.PaymentStatusPending,
		BookingStatus:    entity.BookingStatusConfirmed,
	}
	require.NoError(f.t, f.repo.Booking.Create(f.ctx, b))
	return b
}

func bookingID(t *testing.T, b *response.BookingResponse) uuid.UUID {
	t.Helper()
	return uuid.MustParse(b.ID)
}
