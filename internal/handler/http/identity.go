package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Identity is resolved upstream by the auth gateway and forwarded in headers.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Caller struct {
	ID   int64
	Role string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type callerKey struct{}

func callerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// RequireCaller rejects requests without a valid caller id.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusUnauthorized, "Missing or invalid caller identity")
			return
		}

		role := r.Header.Get(HeaderUserRole)
		if role == "" {
			role = RoleCustomer
		}

		c := Caller{ID: id, Role: role}
		hlog.FromRequest(r).UpdateContext(func(zc zerolog.Context) zerolog.Context {
			return zc.Int64("caller_id", id).Str("caller_role", role)
		})
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
	})
}

// RequireAdmin allows only administrators. It must run after RequireCaller.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := callerFromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Missing or invalid caller identity")
			return
		}
		if !c.IsAdmin() {
			hlog.FromRequest(r).Warn().Int64("caller_id", c.ID).Msg("Admin route requested by non-admin")
			respondWithError(w, http.StatusForbidden, "Administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mustCaller returns the caller placed by RequireCaller.
func mustCaller(w http.ResponseWriter, r *http.Request) (Caller, bool) {
	c, ok := callerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing or invalid caller identity")
	}
	return c, ok
}
