package adaptor

import (
	"net/http"
	"time"

	"parking-booking/internal/dto/request"
	"parking-booking/internal/usecase"
	"parking-booking/pkg/utils"

	"go.uber.org/zap"
)

// LifecycleHandler exposes the sweep to an external scheduler (cron, k8s CronJob).
type LifecycleHandler struct {
	service usecase.LifecycleService
	now     func() time.Time
	log     *zap.Logger
}

func NewLifecycleHandler(service usecase.LifecycleService, log *zap.Logger) *LifecycleHandler {
	return &LifecycleHandler{
		service: service,
		now:     time.Now,
		log:     log.With(zap.String("handler", "lifecycle")),
	}
}

// Sweep handles POST /internal/lifecycle/sweep
func (h *LifecycleHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req request.SweepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	result, err := h.service.SweepLifecycle(r.Context(), h.now(), req.BatchSize)
	if err != nil {
		handleServiceError(h.log, w, err, "sweep lifecycle")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
