package usecase

import (
	"context"
	"time"

	"parking-booking/internal/data/repository"
	"parking-booking/internal/metrics"
	"parking-booking/pkg/telemetry"
	"parking-booking/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Service struct {
	Booking    BookingService
	ParkingLot ParkingLotService
	Lifecycle  LifecycleService
	Ledger     SlotLedger
}

// SweepGuard keeps concurrent sweeps from several instances apart.
// acquired=false means another holder is sweeping right now.
type SweepGuard interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, acquired bool, err error)
}

type Option func(*deps)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithTracerProvider overrides the global provider installed by telemetry.InitTracing.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *deps) { d.tracer = tp.Tracer(telemetry.TracerName) }
}

func WithSweepGuard(g SweepGuard) Option {
	return func(d *deps) { d.sweepGuard = g }
}

// deps is shared by every service of one Service set.
type deps struct {
	repo       *repository.Repository
	cfg        utils.BookingConfig
	now        func() time.Time
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	sweepGuard SweepGuard
}

func NewService(repo *repository.Repository, config *utils.Config, log *zap.Logger, opts ...Option) *Service {
	d := &deps{
		repo:   repo,
		cfg:    config.Booking,
		now:    time.Now,
		tracer: otel.Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.New(prometheus.NewRegistry())
	}
	if d.cfg.PenaltyMultiplier <= 0 {
		d.cfg.PenaltyMultiplier = 2
	}
	if d.cfg.MaxHours <= 0 {
		d.cfg.MaxHours = 24
	}

	ledger := newSlotLedger(d, log)
	alloc := newAllocator(d, log)

	bookings := newBookingService(d, ledger, alloc, log)

	return &Service{
		Booking:    bookings,
		ParkingLot: newParkingLotService(d, ledger, log),
		Lifecycle:  newLifecycleService(d, bookings, log),
		Ledger:     ledger,
	}
}
