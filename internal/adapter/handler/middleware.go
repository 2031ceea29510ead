package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"
)

type actorKey struct{}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the caller identity, the zero Actor when anonymous.
func ActorFrom(ctx context.Context) domain.Actor {
	a, _ := ctx.Value(actorKey{}).(domain.Actor)
	return a
}

func parseRole(raw string) domain.Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(domain.RoleAdmin)) {
		return domain.RoleAdmin
	}
	return domain.RoleCustomer
}

// IdentityMiddleware trusts the identity headers set by the upstream
// session provider.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID != "" {
			actor := domain.Actor{UserID: userID, Role: parseRole(r.Header.Get(HeaderUserRole))}
			r = r.WithContext(withActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).Authenticated() {
			writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *StatusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// HeaderWritten reports whether the response status has been sent.
func (w *StatusRecorder) HeaderWritten() bool {
	return w.status != 0
}

func (w *StatusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// LoggerMiddleware logs every request and turns panics into a 500.
func LoggerMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &StatusRecorder{ResponseWriter: w}
			start := time.Now()

			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("request_id", middleware.GetReqID(r.Context())).
						Str("user_id", ActorFrom(r.Context()).UserID).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Str("error", fmt.Sprintf("%v", rec)).
						Msg("panic recovered")

					if !recorder.HeaderWritten() {
						writeJSON(recorder, http.StatusInternalServerError, errorEnvelope{Error: "internal server error"})
					}
				}

				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("user_id", ActorFrom(r.Context()).UserID).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Int("status", recorder.Status()).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}
