package middleware

import (
	"net/http"

	"parking-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDHeader carries the caller identity resolved by the upstream gateway.
const UserIDHeader = "X-User-ID"

// Identity puts the gateway-supplied user id on the request context.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserIDHeader)
			if raw == "" {
				utils.ResponseUnauthorized(w, "Missing "+UserIDHeader+" header")
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil {
				logger.Warn("Malformed user id header",
					zap.String("value", raw),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid "+UserIDHeader+" header")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
