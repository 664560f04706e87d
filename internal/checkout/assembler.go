package checkout

import (
	"context"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
)

// CartReader is the read-only view of the cart the assembler needs.
type CartReader interface {
	Items() []cart.LineItem
}

// Assembler composes the cart snapshot and the address, service and payment
// sub-forms into one OrderDraft. Every derived value, including readiness, is
// recomputed from the current inputs when asked for.
type Assembler struct {
	cart     CartReader
	lookup   AddressLookup
	validate *validatorv10.Validate
	logger   *zap.Logger

	mu              sync.Mutex
	address         Address
	service         ServiceOption
	schedule        Schedule
	payment         PaymentMethod
	showAddressForm bool
}

// NewAssembler starts a draft with on-site cutting and cash on delivery selected.
// lookup may be nil, in which case the manual address form is always shown.
func NewAssembler(c CartReader, lookup AddressLookup, v *validatorv10.Validate, logger *zap.Logger) *Assembler {
	if v == nil {
		v = NewValidator()
	}
	return &Assembler{
		cart:            c,
		lookup:          lookup,
		validate:        v,
		logger:          logger,
		service:         OnSiteCut,
		payment:         CashOnDelivery,
		showAddressForm: true,
	}
}

// Enter runs on checkout entry. A complete saved address fills the draft and hides
// the manual form. An empty result, an incomplete address or a failed lookup
// leaves the form visible.
func (a *Assembler) Enter(ctx context.Context, subjectID, token string) {
	if a.lookup == nil {
		return
	}
	saved, err := a.lookup.Lookup(ctx, subjectID, token)
	if err != nil {
		a.logger.Warn("address lookup failed, showing address form",
			zap.String("subject_id", subjectID), zap.Error(err))
		return
	}
	if saved == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.address = *saved
	a.showAddressForm = a.validate.Struct(*saved) != nil
}

// SetAddress replaces the address sub-form.
func (a *Assembler) SetAddress(addr Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.address = addr
}

// SelectService switches the preparation option. Leaving pre-booking discards the
// schedule. Values outside the closed set are ignored.
func (a *Assembler) SelectService(s ServiceOption) {
	if _, ok := serviceLabels[s]; !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.service == PreBooking && s != PreBooking {
		a.schedule = Schedule{}
	}
	a.service = s
}

// SetSchedule records the pre-booking slot. Ignored unless pre-booking is selected.
func (a *Assembler) SetSchedule(sched Schedule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.service != PreBooking {
		return
	}
	a.schedule = sched
}

// SelectPayment switches the payment method. Unknown methods are ignored.
func (a *Assembler) SelectPayment(p PaymentMethod) {
	if _, ok := paymentLabels[p]; !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payment = p
}

// Ready reports whether the draft may be submitted: address complete and, for
// pre-booking, both schedule fields filled.
func (a *Assembler) Ready() bool {
	return a.Missing() == nil
}

// Missing lists the fields that keep the draft from being ready.
func (a *Assembler) Missing() []string {
	a.mu.Lock()
	r := readiness{Address: a.address, Service: a.service, Schedule: a.schedule}
	a.mu.Unlock()

	if err := a.validate.Struct(r); err != nil {
		if fields := MissingFields(err); len(fields) > 0 {
			return fields
		}
		return []string{err.Error()}
	}
	return nil
}

func (a *Assembler) FormattedAddress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return FormatAddress(a.address)
}

func (a *Assembler) ProductsSummary() string {
	return SummarizeProducts(a.cart.Items())
}

func (a *Assembler) CuttingMethodLabel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CuttingMethodLabel(a.service, a.schedule)
}

func (a *Assembler) SubmitLabel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return SubmitLabel(a.payment)
}

// Schedule returns the current pre-booking slot.
func (a *Assembler) Schedule() Schedule {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schedule
}

// Draft composes the order draft from the current cart and sub-forms.
func (a *Assembler) Draft() OrderDraft {
	items := a.cart.Items()

	a.mu.Lock()
	defer a.mu.Unlock()

	count, total := cart.Snapshot{Items: items}.Totals()
	d := OrderDraft{
		Items:            items,
		Address:          a.address,
		FormattedAddress: FormatAddress(a.address),
		ProductsSummary:  SummarizeProducts(items),
		Service:          a.service,
		CuttingMethod:    CuttingMethodLabel(a.service, a.schedule),
		PaymentMethod:    a.payment,
		TotalCount:       count,
		Total:            total,
	}
	if a.service == PreBooking {
		sched := a.schedule
		d.Schedule = &sched
	}
	return d
}

// View is the draft plus the presentation flags.
func (a *Assembler) View() View {
	d := a.Draft()
	ready := a.Ready()

	a.mu.Lock()
	defer a.mu.Unlock()
	return View{
		Draft:           d,
		Ready:           ready,
		SubmitLabel:     SubmitLabel(a.payment),
		ShowAddressForm: a.showAddressForm,
	}
}
