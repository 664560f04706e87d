package validation

import (
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/fishly-storefront/internal/checkout"
)

// New returns a configured validator with the notblank tag and the order draft
// struct-level rule registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	if err := checkout.RegisterNotBlank(v); err != nil {
		panic(err)
	}

	// a submitted draft must carry items whose line totals add up to its Total
	v.RegisterStructValidation(orderDraftStructValidation, checkout.OrderDraft{})

	return v
}

func orderDraftStructValidation(sl validatorv10.StructLevel) {
	d := sl.Current().Interface().(checkout.OrderDraft)

	if len(d.Items) == 0 {
		sl.ReportError(d.Items, "items", "Items", "min_items", "1")
	}

	count := 0
	sum := decimal.Zero
	for _, it := range d.Items {
		if it.Count < 1 {
			sl.ReportError(it.Count, "count", "Count", "min", "1")
		}
		count += it.Count
		sum = sum.Add(it.LineTotal())
	}
	if !sum.Equal(d.Total) {
		sl.ReportError(d.Total, "total", "Total", "amount_match_items", fmt.Sprintf("items sum %s != total %s", sum.StringFixed(2), d.Total.StringFixed(2)))
	}
	if count != d.TotalCount {
		sl.ReportError(d.TotalCount, "total_count", "TotalCount", "count_match_items", fmt.Sprintf("%d != %d", count, d.TotalCount))
	}

	if strings.TrimSpace(d.FormattedAddress) == "" {
		sl.ReportError(d.FormattedAddress, "formatted_address", "FormattedAddress", "required", "")
	}
	if d.Service.Label() == "" {
		sl.ReportError(d.Service, "service", "Service", "oneof", "")
	}
	if d.PaymentMethod.Label() == "" {
		sl.ReportError(d.PaymentMethod, "payment_method", "PaymentMethod", "oneof", "")
	}
	if d.Service == checkout.PreBooking && (d.Schedule == nil || strings.TrimSpace(d.Schedule.Date) == "" || strings.TrimSpace(d.Schedule.Time) == "") {
		sl.ReportError(d.Schedule, "schedule", "Schedule", "schedule_required", "")
	}
}

// Fields flattens validation errors into namespace -> tag.
func Fields(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Tag()
		}
	} else if err != nil {
		out["error"] = err.Error()
	}
	return out
}
