package wire

import (
	"parking-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireLifecycle mounts the sweep trigger. It is meant for the cluster-internal
// scheduler and is not routed through the gateway.
func wireLifecycle(r chi.Router, lifecycleHandler *adaptor.LifecycleHandler) {
	r.Post("/internal/lifecycle/sweep", lifecycleHandler.Sweep)
}
