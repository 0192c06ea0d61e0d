package suppliers

import (
	"strings"

	"github.com/dawa-pos/dawa/internal/shared"
)

func normalize(in Input) Input {
	in.Name = shared.CleanName(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	if e164, err := shared.NormalizePhone(in.Contact); err == nil {
		in.Contact = e164
	}
	in.Address = strings.TrimSpace(in.Address)
	return in
}

func validate(in Input) error {
	verr := &shared.ValidationError{}
	if in.Name == "" {
		verr.Add("name", "this field may not be blank")
	}
	if len(in.Name) > 255 {
		verr.Add("name", "must be at most 255 characters")
	}
	if _, err := shared.NormalizePhone(in.Contact); err != nil {
		verr.Add("contact", "enter a valid phone number")
	}
	return verr.OrNil()
}
