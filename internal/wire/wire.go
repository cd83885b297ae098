package wire

import (
	"net/http"

	"parking-booking/internal/adaptor"
	"parking-booking/internal/data/repository"
	"parking-booking/internal/metrics"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/middleware"
	"parking-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the wired HTTP surface and the services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and the router. Collectors are registered
// on registry, which is also served on /metrics.
func Wiring(repo *repository.Repository, config *utils.Config, logger *zap.Logger, registry *prometheus.Registry, opts ...usecase.Option) *App {
	m := metrics.New(registry)

	opts = append([]usecase.Option{usecase.WithMetrics(m)}, opts...)
	service := usecase.NewService(repo, config, logger, opts...)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, m, registry, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Recover(logger))

	// Apply routes
	wireBooking(r, handler.Booking, logger)
	wireGate(r, handler.Gate, logger)
	wireParkingLot(r, handler.ParkingLot, logger)
	wireLifecycle(r, handler.Lifecycle)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
