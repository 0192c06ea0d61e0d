package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

// PrincipalResolver turns an authenticated user id into its capability set.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID int64) (shared.Principal, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return c, ok
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	Service  *Service
	Resolver PrincipalResolver
	Logger   *slog.Logger
}

// Authenticate stores the caller's principal in the request context. Requests
// without a token continue as anonymous; services reject them with 401.
// A token that is present but invalid or revoked is rejected here.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		claims, err := m.Service.Verify(r.Context(), raw)
		if err != nil {
			httpx.RespondError(w, m.Logger, err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.RespondError(w, m.Logger, err)
			return
		}
		principal, err := m.Resolver.Resolve(r.Context(), userID)
		if err != nil {
			httpx.RespondError(w, m.Logger, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		ctx = shared.ContextWithPrincipal(ctx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		// a malformed header is still an attempt; let Verify reject it
		return header, true
	}
	return strings.TrimSpace(token), true
}
