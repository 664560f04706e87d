package checkout

import (
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// readiness is the subset of the draft that gates submission.
type readiness struct {
	Address  Address
	Service  ServiceOption `validate:"required,oneof=on_site_cut pre_cut pre_booking"`
	Schedule Schedule
}

// NewValidator returns a validator with the notblank tag and the pre-booking
// schedule rule registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	if err := RegisterNotBlank(v); err != nil {
		panic(err)
	}

	v.RegisterStructValidation(readinessStructValidation, readiness{})

	return v
}

// NotBlankTag is the validation tag for strings that must be non-empty after
// trimming whitespace.
const NotBlankTag = "notblank"

// RegisterNotBlank adds the notblank tag to v.
func RegisterNotBlank(v *validatorv10.Validate) error {
	if err := v.RegisterValidation(NotBlankTag, notBlank); err != nil {
		return fmt.Errorf("register %s: %w", NotBlankTag, err)
	}
	return nil
}

func notBlank(fl validatorv10.FieldLevel) bool {
	return !isBlank(fl.Field().String())
}

// readinessStructValidation requires both schedule fields when pre-booking is selected.
func readinessStructValidation(sl validatorv10.StructLevel) {
	r := sl.Current().Interface().(readiness)
	if r.Service != PreBooking {
		return
	}
	if isBlank(r.Schedule.Date) {
		sl.ReportError(r.Schedule.Date, "date", "Date", "schedule_required", "")
	}
	if isBlank(r.Schedule.Time) {
		sl.ReportError(r.Schedule.Time, "time", "Time", "schedule_required", "")
	}
}

// MissingFields lists the namespaced fields that keep a draft from being ready.
func MissingFields(err error) []string {
	var out []string
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out = append(out, fe.Namespace())
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
