package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.NewValidationError("name", "this field is required"), http.StatusBadRequest},
		{fmt.Errorf("supplier: %w", shared.ErrReferenced), http.StatusBadRequest},
		{fmt.Errorf("supplier 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("%w: missing purchases.add", shared.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: retries exhausted", shared.ErrConflict), http.StatusConflict},
		{errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, nil, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, errors.New("password=secret"))
	require.NotContains(t, rr.Body.String(), "secret")
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, shared.NewValidationError("total", "total mismatch"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "total mismatch", body.Errors["total"])
}

type sampleItem struct {
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

type sampleRequest struct {
	Name  string       `json:"name" validate:"required"`
	Items []sampleItem `json:"items" validate:"required,min=1,dive"`
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	err := Validate(sampleRequest{Items: []sampleItem{{Quantity: 0}}})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "this field is required", verr.Fields["name"])
	require.Contains(t, verr.Fields, "items[0].quantity")

	require.NoError(t, Validate(sampleRequest{Name: "x", Items: []sampleItem{{Quantity: 1}}}))
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var target sampleRequest
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)
}
