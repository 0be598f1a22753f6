// Package auth authenticates bearer tokens and puts the caller's identity and
// claimed role on the request context.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"passport/internal/platform/actortoken"
	id "passport/pkg/domain"
	dErrors "passport/pkg/domain-errors"
	"passport/pkg/platform/httputil"
	"passport/pkg/platform/middleware/metadata"
	"passport/pkg/requestcontext"
)

// TokenValidator validates a raw bearer token.
type TokenValidator interface {
	Validate(tokenString string) (*actortoken.Claims, error)
}

func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", metadata.GetClientIP(ctx),
					"user_agent", metadata.GetUserAgent(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", metadata.GetClientIP(ctx),
					"user_agent", metadata.GetUserAgent(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}
			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid token subject"))
				return
			}

			ctx = requestcontext.WithActor(ctx, userID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
