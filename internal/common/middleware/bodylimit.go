package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/httpx"
)

// LimitRequestBody caps the request body at limit bytes. Requests that declare a larger
// Content-Length are rejected up front; others fail while reading with
// *http.MaxBytesError, which handlers map to 413.
func LimitRequestBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				log.Ctx(r.Context()).Warn().
					Int64("content_length", r.ContentLength).
					Int64("limit", limit).
					Msg("request body too large")
				httpx.ErrRequestTooLarge(limit).Send(w)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
