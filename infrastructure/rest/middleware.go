package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"skillxchange/auth"
	"skillxchange/errors"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Verifier binds a bearer token to a user identity.
type Verifier interface {
	Verify(token string) (string, error)
}

// UserIDFromContext returns the identity bound by the authentication middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// NewAuthMiddleware requires an "Authorization: Bearer <jwt>" header.
func NewAuthMiddleware(log *slog.Logger, verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, log, err)
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				if !errors.Is(err, errors.ErrAuth) {
					err = errors.ErrInvalidToken
				}
				writeError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// statusRecorder keeps the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware logs one line per request.
func NewLoggingMiddleware(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
			}
			if userID, ok := UserIDFromContext(r.Context()); ok {
				attrs = append(attrs, "user_id", userID)
			}
			log.Debug("HTTP request", attrs...)
		})
	}
}
