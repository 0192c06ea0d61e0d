package procurement

import (
	"fmt"
	"strings"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

func lineField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}

// validateCreate runs every check that needs no database access.
func validateCreate(in *CreateInput) error {
	in.Invoice = strings.TrimSpace(in.Invoice)
	for i := range in.Items {
		in.Items[i].BatchNumber = strings.TrimSpace(in.Items[i].BatchNumber)
	}
	if err := httpx.Validate(in); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return shared.NewValidationError("date", "this field is required")
	}
	sum, err := itemsTotal(in.Items)
	if err != nil {
		return err
	}
	if sum != in.Total {
		return shared.NewValidationError("total", MsgTotalMismatch)
	}
	return nil
}

func validateHeader(in *HeaderInput) error {
	in.Invoice = strings.TrimSpace(in.Invoice)
	verr := &shared.ValidationError{}
	if err := httpx.Validate(in); err != nil {
		return err
	}
	if in.Date.IsZero() {
		verr.Add("date", "this field is required")
	}
	return verr.OrNil()
}
