package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parking-booking/internal/data/entity"
	"parking-booking/internal/data/repository/memory"
	"parking-booking/internal/dto/response"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/middleware"
	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testApp struct {
	t       *testing.T
	router  http.Handler
	org     entity.Organization
	admin   entity.User
	visitor entity.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memory.NewStore()
	orgID := uuid.New()
	admin := entity.User{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:           "Admin",
		Email:          "admin@example.com",
		UserType:       entity.UserTypeAdmin,
		OrganizationID: &orgID,
	}
	visitor := entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:     "Visitor",
		Email:    "visitor@example.com",
		UserType: entity.UserTypeVisitor,
	}
	org := entity.Organization{
		Base:        entity.Base{ID: orgID, CreatedAt: now, UpdatedAt: now},
		Name:        "Tech Park",
		HourlyRate:  40,
		AdminUserID: admin.ID,
		IsActive:    true,
	}
	store.AddUser(admin)
	store.AddUser(visitor)
	store.AddOrganization(org)

	cfg := &utils.Config{Booking: utils.BookingConfig{MaxHours: 24, PenaltyMultiplier: 2, WalkInGrace: 15 * time.Minute}}
	app := Wiring(store.Repository(), cfg, zap.NewNop(), prometheus.NewRegistry(),
		usecase.WithClock(func() time.Time { return now }))

	return &testApp{t: t, router: app.Router, org: org, admin: admin, visitor: visitor}
}

// do sends body as JSON with the given identity and decodes the envelope.
func (a *testApp) do(method, path string, user *entity.User, body any) (int, utils.Response, json.RawMessage) {
	a.t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set(middleware.UserIDHeader, user.ID.String())
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var envelope struct {
		utils.Response
		Data json.RawMessage `json:"data"`
	}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec.Code, envelope.Response, envelope.Data
}

func (a *testApp) createLot(name string, total int) response.ParkingLotResponse {
	a.t.Helper()
	code, _, data := a.do(http.MethodPost, "/api/admin/organizations/"+a.org.ID.String()+"/lots", &a.admin,
		map[string]any{"name": name, "total_slots": total, "priority_order": 1})
	require.Equal(a.t, http.StatusCreated, code)

	var lot response.ParkingLotResponse
	require.NoError(a.t, json.Unmarshal(data, &lot))
	return lot
}

func bookingBody(app *testApp, vehicle string, start, end time.Time) map[string]any {
	return map[string]any{
		"organization_id": app.org.ID.String(),
		"vehicle_number":  vehicle,
		"start_time":      start,
		"end_time":        end,
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBookingRoutes(t *testing.T) {
	app := newTestApp(t)
	lot := app.createLot("Main", 1)
	assert.Equal(t, 1, lot.AvailableSlots)

	code, _, _ := app.do(http.MethodPost, "/api/bookings", nil,
		bookingBody(app, "KA01AB1234", now.Add(time.Hour), now.Add(3*time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res, data := app.do(http.MethodPost, "/api/bookings", &app.visitor,
		bookingBody(app, "KA01AB1234", now.Add(time.Hour), now.Add(3*time.Hour)))
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, res.Status)

	var booking response.BookingResponse
	require.NoError(t, json.Unmarshal(data, &booking))
	assert.Equal(t, "Main-1", booking.SlotNumber)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.BookingStatus)

	code, res, _ = app.do(http.MethodPost, "/api/bookings", &app.visitor,
		bookingBody(app, "DL1CAB5678", now.Add(2*time.Hour), now.Add(4*time.Hour)))
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, res.Status)

	code, _, _ = app.do(http.MethodPost, "/api/bookings", &app.visitor,
		bookingBody(app, "DL1CAB5678", now.Add(-2*time.Hour), now.Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, data = app.do(http.MethodGet, "/api/bookings/"+booking.ID, &app.visitor, nil)
	require.Equal(t, http.StatusOK, code)
	var fetched response.BookingResponse
	require.NoError(t, json.Unmarshal(data, &fetched))
	assert.Equal(t, booking.Reference, fetched.Reference)

	code, _, _ = app.do(http.MethodGet, "/api/bookings/"+uuid.NewString(), &app.visitor, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _, _ = app.do(http.MethodGet, "/api/bookings/not-a-uuid", &app.visitor, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = app.do(http.MethodPost, "/api/bookings/"+booking.ID+"/extend", &app.visitor,
		map[string]any{"extra_hours": 1})
	assert.Equal(t, http.StatusConflict, code, "confirmed bookings cannot extend")

	code, _, data = app.do(http.MethodGet, "/api/user/bookings?page=1&per_page=5", &app.visitor, nil)
	require.Equal(t, http.StatusOK, code)
	var page response.PaginatedResponse[response.BookingResponse]
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, int64(1), page.Pagination.Total)

	code, _, data = app.do(http.MethodGet, "/api/organizations/"+app.org.ID.String()+"/availability?start_time="+
		now.Add(3*time.Hour).Format(time.RFC3339)+"&end_time="+now.Add(4*time.Hour).Format(time.RFC3339), nil, nil)
	require.Equal(t, http.StatusOK, code)
	var availability response.AvailabilityResponse
	require.NoError(t, json.Unmarshal(data, &availability))
	require.Len(t, availability.Lots, 1)
	assert.Equal(t, []string{"Main-1"}, availability.Lots[0].FreeSlots)

	code, _, data = app.do(http.MethodPost, "/api/bookings/"+booking.ID+"/cancel", &app.visitor, nil)
	require.Equal(t, http.StatusOK, code)
	var cancelled response.BookingResponse
	require.NoError(t, json.Unmarshal(data, &cancelled))
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.BookingStatus)
}

func TestGateRoutes(t *testing.T) {
	app := newTestApp(t)
	app.createLot("Main", 2)

	_, _, data := app.do(http.MethodPost, "/api/bookings", &app.visitor,
		bookingBody(app, "KA01AB1234", now, now.Add(2*time.Hour)))
	var booking response.BookingResponse
	require.NoError(t, json.Unmarshal(data, &booking))
	require.Equal(t, entity.BookingStatusActive, booking.BookingStatus)

	code, _, _ := app.do(http.MethodPost, "/api/gate/bookings/"+booking.ID+"/entry", &app.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _, data = app.do(http.MethodPost, "/api/gate/bookings/"+booking.ID+"/exit", &app.admin,
		map[string]any{"payment_method": "cash"})
	require.Equal(t, http.StatusOK, code)
	var exit response.ExitResponse
	require.NoError(t, json.Unmarshal(data, &exit))
	assert.Equal(t, entity.BookingStatusCompleted, exit.Booking.BookingStatus)
	assert.Nil(t, exit.PenaltyPayment)
}

func TestParkingLotRoutes(t *testing.T) {
	app := newTestApp(t)
	lot := app.createLot("Main", 3)

	code, _, _ := app.do(http.MethodPost, "/api/admin/organizations/"+app.org.ID.String()+"/lots", &app.visitor,
		map[string]any{"name": "Other", "total_slots": 3})
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = app.do(http.MethodPost, "/api/admin/organizations/"+app.org.ID.String()+"/lots", &app.admin,
		map[string]any{"name": "Main", "total_slots": 3})
	assert.Equal(t, http.StatusConflict, code)

	code, _, data := app.do(http.MethodGet, "/api/organizations/"+app.org.ID.String()+"/lots", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var lots []response.ParkingLotResponse
	require.NoError(t, json.Unmarshal(data, &lots))
	assert.Len(t, lots, 1)

	code, _, _ = app.do(http.MethodPost, "/api/admin/lots/"+lot.ID+"/recompute", &app.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _, _ = app.do(http.MethodDelete, "/api/admin/lots/"+lot.ID, &app.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _, _ = app.do(http.MethodDelete, "/api/admin/lots/"+lot.ID, &app.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSweepAndMetrics(t *testing.T) {
	app := newTestApp(t)
	app.createLot("Main", 2)

	code, _, data := app.do(http.MethodPost, "/internal/lifecycle/sweep", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var sweep response.SweepResponse
	require.NoError(t, json.Unmarshal(data, &sweep))
	assert.Zero(t, sweep.Activated)

	code, _, _ = app.do(http.MethodPost, "/internal/lifecycle/sweep", nil, map[string]any{"batch_size": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parking_lifecycle_sweep_duration_seconds")
	assert.Contains(t, rec.Body.String(), "parking_http_request_duration_seconds")
}
