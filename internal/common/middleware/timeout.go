package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/httpx"
)

// SetTimeout creates middleware that enforces a timeout for request handling. If the request
// exceeds the specified duration, it returns a timeout error response. The timeout is added
// to response headers for debugging purposes.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)
			rw.Header().Set("X-Specstudio-Timeout", timeout.String())

			done := make(chan struct{})
			go func() {
				defer func() {
					if r := recover(); r != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", r)
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if !rw.Abandon() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Error().Dur("timeout", timeout).Msg("request timed out")
				return
			}
		})
	}
}
