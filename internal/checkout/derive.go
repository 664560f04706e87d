package checkout

import (
	"fmt"
	"strings"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
)

// FormatAddress joins the address fields with single spaces. Each field is trimmed
// and blank fields are skipped.
func FormatAddress(a Address) string {
	parts := make([]string, 0, 5)
	for _, f := range []string{a.Street, a.Area, a.City, a.Pincode, a.Landmark} {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// SummarizeProducts renders "NAME x COUNT" for every line, in cart order.
func SummarizeProducts(items []cart.LineItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s x %d", it.Name, it.Count)
	}
	return strings.Join(parts, ", ")
}

// CuttingMethodLabel is the service label, with the slot appended in parentheses
// for pre-booking.
func CuttingMethodLabel(s ServiceOption, sched Schedule) string {
	label := s.Label()
	if s != PreBooking {
		return label
	}
	var slot []string
	for _, f := range []string{sched.Date, sched.Time} {
		if f = strings.TrimSpace(f); f != "" {
			slot = append(slot, f)
		}
	}
	if len(slot) == 0 {
		return label
	}
	return label + " (" + strings.Join(slot, " ") + ")"
}

// SubmitLabel is the text of the submit control.
func SubmitLabel(p PaymentMethod) string {
	if p == CashOnDelivery {
		return "Place Order"
	}
	return "Proceed to Pay"
}
