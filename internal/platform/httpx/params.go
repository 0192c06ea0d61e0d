package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dawa-pos/dawa/internal/shared"
)

// IDParam parses a positive int64 URL parameter. A malformed id is reported
// as not found, matching an unknown id.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

// QueryInt64 parses an optional positive int64 query parameter.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, shared.NewValidationError(name, "must be a positive integer")
	}
	return &v, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*shared.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := shared.ParseDate(raw)
	if err != nil {
		return nil, shared.NewValidationError(name, "expected YYYY-MM-DD")
	}
	return &d, nil
}

// QueryDateRange reads <prefix>_after and <prefix>_before as an inclusive range.
func QueryDateRange(r *http.Request, prefix string) (shared.DateRange, error) {
	from, err := QueryDate(r, prefix+"_after")
	if err != nil {
		return shared.DateRange{}, err
	}
	to, err := QueryDate(r, prefix+"_before")
	if err != nil {
		return shared.DateRange{}, err
	}
	return shared.DateRange{From: from, To: to}, nil
}

// Principal returns the principal resolved by the auth middleware, or the
// anonymous principal.
func Principal(r *http.Request) shared.Principal {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p
}
