package orders

import (
	"time"

	"github.com/imrishuroy/fishly-storefront/internal/checkout"
)

// Order statuses, in tracking order.
const (
	StatusReceived           = "RECEIVED"
	StatusCleaningAndCutting = "CLEANING_AND_CUTTING"
	StatusDispatched         = "DISPATCHED"
	StatusDelivered          = "DELIVERED"
)

// Item is one line of a placed order. Amounts are stored as fixed two-place strings.
type Item struct {
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	Name      string `dynamodbav:"name" json:"name"`
	Packaging string `dynamodbav:"packaging,omitempty" json:"packaging,omitempty"`
	UnitPrice string `dynamodbav:"unit_price" json:"unit_price"`
	Count     int    `dynamodbav:"count" json:"count"`
	LineTotal string `dynamodbav:"line_total" json:"line_total"`
}

// DeliveryAddress mirrors checkout.Address for persistence.
type DeliveryAddress struct {
	Street   string `dynamodbav:"street" json:"street"`
	Area     string `dynamodbav:"area" json:"area"`
	City     string `dynamodbav:"city" json:"city"`
	Pincode  string `dynamodbav:"pincode" json:"pincode"`
	Landmark string `dynamodbav:"landmark,omitempty" json:"landmark,omitempty"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID          string          `dynamodbav:"order_id" json:"order_id"` // PK
	SubjectID        string          `dynamodbav:"subject_id" json:"subject_id"`
	IdempotencyKey   string          `dynamodbav:"idempotency_key" json:"-"`
	Status           string          `dynamodbav:"status" json:"status"`
	Items            []Item          `dynamodbav:"items" json:"items"`
	Address          DeliveryAddress `dynamodbav:"address" json:"address"`
	FormattedAddress string          `dynamodbav:"formatted_address" json:"formatted_address"`
	ProductsSummary  string          `dynamodbav:"products_summary" json:"products_summary"`
	Service          string          `dynamodbav:"service" json:"service"`
	ScheduleDate     string          `dynamodbav:"schedule_date,omitempty" json:"schedule_date,omitempty"`
	ScheduleTime     string          `dynamodbav:"schedule_time,omitempty" json:"schedule_time,omitempty"`
	CuttingMethod    string          `dynamodbav:"cutting_method" json:"cutting_method"`
	PaymentMethod    string          `dynamodbav:"payment_method" json:"payment_method"`
	TotalCount       int             `dynamodbav:"total_count" json:"total_count"`
	Total            string          `dynamodbav:"total" json:"total"`
	CreatedAt        time.Time       `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `dynamodbav:"updated_at" json:"updated_at"`
}

// NewOrder turns a ready draft into the RECEIVED order record.
func NewOrder(orderID, subjectID, key string, d checkout.OrderDraft, now time.Time) Order {
	items := make([]Item, 0, len(d.Items))
	for _, li := range d.Items {
		items = append(items, Item{
			ProductID: li.ID,
			Name:      li.Name,
			Packaging: li.Packaging,
			UnitPrice: li.UnitPrice.StringFixed(2),
			Count:     li.Count,
			LineTotal: li.LineTotal().StringFixed(2),
		})
	}
	o := Order{
		OrderID:        orderID,
		SubjectID:      subjectID,
		IdempotencyKey: key,
		Status:         StatusReceived,
		Items:          items,
		Address: DeliveryAddress{
			Street:   d.Address.Street,
			Area:     d.Address.Area,
			City:     d.Address.City,
			Pincode:  d.Address.Pincode,
			Landmark: d.Address.Landmark,
		},
		FormattedAddress: d.FormattedAddress,
		ProductsSummary:  d.ProductsSummary,
		Service:          string(d.Service),
		CuttingMethod:    d.CuttingMethod,
		PaymentMethod:    string(d.PaymentMethod),
		TotalCount:       d.TotalCount,
		Total:            d.Total.StringFixed(2),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if d.Schedule != nil {
		o.ScheduleDate = d.Schedule.Date
		o.ScheduleTime = d.Schedule.Time
	}
	return o
}

// Receipt is what the shopper gets back for a submission, and what a repeated
// submission with the same key gets back again.
type Receipt struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
	Replayed      bool      `json:"replayed,omitempty"`
}

// OrderPlaced is the message published once an order is persisted.
type OrderPlaced struct {
	OrderID        string    `json:"order_id"`
	SubjectID      string    `json:"subject_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Total          string    `json:"total"`
	PaymentMethod  string    `json:"payment_method"`
	CreatedAt      time.Time `json:"created_at"`
}
