package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/pkg/utils"
)

func PanicRecovery(logger *logging.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("recovery")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(r.Context(), "panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))

					utils.Error(w, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
