package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

// Middleware gates routes on the principal placed in context by auth.
// Services check permissions themselves; these wrappers serve routes that
// have no service call to guard, such as the permission catalog.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := httpx.Principal(r)
			if p.UserID <= 0 {
				httpx.RespondError(w, m.Logger, shared.ErrUnauthenticated)
				return
			}
			if len(normalized) == 0 || hasAnyPermission(p, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, m.Logger, fmt.Errorf("%w: need one of %s", shared.ErrForbidden, strings.Join(normalized, ", ")))
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := httpx.Principal(r).Require(normalized...); err != nil {
				httpx.RespondError(w, m.Logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(p shared.Principal, required []string) bool {
	for _, r := range required {
		if p.Can(r) {
			return true
		}
	}
	return false
}
