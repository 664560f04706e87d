package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
)

// Address is the delivery address sub-form. Landmark is optional.
type Address struct {
	Street   string `json:"street" validate:"notblank"`
	Area     string `json:"area" validate:"notblank"`
	City     string `json:"city" validate:"notblank"`
	Pincode  string `json:"pincode" validate:"notblank"`
	Landmark string `json:"landmark,omitempty"`
}

// ServiceOption is how the fish is prepared before delivery.
type ServiceOption string

const (
	OnSiteCut  ServiceOption = "on_site_cut"
	PreCut     ServiceOption = "pre_cut"
	PreBooking ServiceOption = "pre_booking"
)

var serviceLabels = map[ServiceOption]string{
	OnSiteCut:  "On-site Cutting",
	PreCut:     "Pre-cut",
	PreBooking: "Pre-booking",
}

// Label is the display name of the option.
func (s ServiceOption) Label() string {
	return serviceLabels[s]
}

// ParseServiceOption maps a wire value onto the closed set of options.
func ParseServiceOption(v string) (ServiceOption, bool) {
	s := ServiceOption(v)
	_, ok := serviceLabels[s]
	return s, ok
}

// Schedule is the pre-booking slot. Only meaningful with PreBooking.
type Schedule struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// PaymentMethod is how the shopper pays.
type PaymentMethod string

const (
	CashOnDelivery PaymentMethod = "cash_on_delivery"
	PayOnline      PaymentMethod = "pay_online"
)

var paymentLabels = map[PaymentMethod]string{
	CashOnDelivery: "Cash on Delivery",
	PayOnline:      "Pay Online",
}

func (p PaymentMethod) Label() string {
	return paymentLabels[p]
}

// ParsePaymentMethod maps a wire value onto the supported payment methods.
func ParsePaymentMethod(v string) (PaymentMethod, bool) {
	p := PaymentMethod(v)
	_, ok := paymentLabels[p]
	return p, ok
}

// OrderDraft is the composed, not yet submitted order. It is rebuilt from the cart
// and the sub-forms every time it is requested.
type OrderDraft struct {
	Items            []cart.LineItem `json:"items"`
	Address          Address         `json:"address"`
	FormattedAddress string          `json:"formatted_address"`
	ProductsSummary  string          `json:"products_summary"`
	Service          ServiceOption   `json:"service"`
	Schedule         *Schedule       `json:"schedule,omitempty"`
	CuttingMethod    string          `json:"cutting_method"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	TotalCount       int             `json:"total_count"`
	Total            decimal.Decimal `json:"total"`
}

// View is everything the checkout screen renders.
type View struct {
	Draft           OrderDraft `json:"draft"`
	Ready           bool       `json:"ready"`
	SubmitLabel     string     `json:"submit_label"`
	ShowAddressForm bool       `json:"show_address_form"`
}
