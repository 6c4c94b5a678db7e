package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/auth"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/service"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity, or nil when the
// request did not pass through RequireSession.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityContextKey).(*domain.Identity)
	return identity
}

// RequireSession validates the token cookies on every request, rotates the
// pair, and re-issues the cookies before the handler runs. Requests without
// a usable session never reach the handler.
func RequireSession(svc *service.AuthService, jwtManager *auth.JWTManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken := cookieValue(r, accessTokenCookie)
			refreshToken := cookieValue(r, refreshTokenCookie)

			identity, pair, err := svc.ValidateSession(r.Context(), accessToken, refreshToken)
			if err != nil {
				writeError(w, r, err, logger)
				return
			}

			setTokenCookies(w, pair, jwtManager)

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
