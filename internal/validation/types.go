package validation

// AddItemRequest is the payload for POST /cart/items
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"` // catalog id
}

// EstablishSessionRequest is the login collaborator's hand-off for POST /session
type EstablishSessionRequest struct {
	SubjectID string `json:"subject_id" validate:"required,notblank"`
	Token     string `json:"token" validate:"required,notblank"`
}

// AddressRequest is the payload for PUT /checkout/address. Fields may be partially
// filled while the shopper is typing; readiness is decided by the checkout draft.
type AddressRequest struct {
	Street   string `json:"street" validate:"max=200"`
	Area     string `json:"area" validate:"max=200"`
	City     string `json:"city" validate:"max=100"`
	Pincode  string `json:"pincode" validate:"max=12"`
	Landmark string `json:"landmark" validate:"max=200"`
}

// ServiceRequest is the payload for PUT /checkout/service. Date and Time are only
// read for pre_booking.
type ServiceRequest struct {
	Service string `json:"service" validate:"required,oneof=on_site_cut pre_cut pre_booking"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
}

// PaymentRequest is the payload for PUT /checkout/payment
type PaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cash_on_delivery pay_online"`
}
