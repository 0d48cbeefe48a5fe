package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"caseflow/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the actor it
// identifies.
type TokenValidator interface {
	ValidateToken(tokenString string) (*ActorClaims, error)
}

// ActorClaims carries the identity the auth middleware injects into the
// request context. Roles are capability tags ("applicant", "officer",
// "registrar") checked by the transition validator.
type ActorClaims struct {
	ActorID string
	Roles   []string
}

// RequireAuth enforces a valid bearer token and stores the actor identity in
// the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithActor(ctx, claims.ActorID, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
