package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/httpx"
)

// contextKey is the type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "auth_identity"

// WithIdentity returns a context carrying the authenticated identity.
// Useful for testing handlers that normally sit below the middleware.
func WithIdentity(ctx context.Context, payload AccessTokenPayload) context.Context {
	return context.WithValue(ctx, identityContextKey, payload)
}

// IdentityFrom extracts the authenticated identity from context.
func IdentityFrom(ctx context.Context) (AccessTokenPayload, bool) {
	payload, ok := ctx.Value(identityContextKey).(AccessTokenPayload)
	return payload, ok
}

// RequireUser is a middleware that rejects requests without a valid bearer
// access token and stores the decoded identity on the request context.
func RequireUser(service Service) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "auth.middleware.RequireUser"

			token, err := bearerToken(r)
			if err != nil {
				httpx.WriteErrx(w, errx.E(op, errx.Unauthorized, err))
				return
			}

			payload, err := service.DecodeAccess(token)
			if err != nil {
				httpx.WriteErrx(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), payload)))
		})
	}
}

// RequireAdmin is RequireUser plus the admin gate. The admin flag is read
// off the decoded token only; the gate never touches storage.
func RequireAdmin(service Service) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "auth.middleware.RequireAdmin"

			identity, ok := IdentityFrom(r.Context())
			if !ok || !identity.IsAdmin {
				httpx.WriteErrx(w, errx.E(op, errx.AdminRequired, errors.New("admin access required")))
				return
			}
			next.ServeHTTP(w, r)
		})
		return RequireUser(service)(gate)
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("authorization header is not a bearer token")
	}
	return token, nil
}
