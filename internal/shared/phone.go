package shared

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// PhoneRegion is the ISO region used to read contact numbers written without
// a country prefix. Set once at startup from configuration.
var PhoneRegion = "UG"

// NormalizePhone validates a contact number and returns it in E.164 form.
// An empty input stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, PhoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", NewValidationError("contact", "enter a valid phone number")
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
