package cart

import "github.com/shopspring/decimal"

// LineItem is one product quantity committed to the cart.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Packaging string          `json:"packaging"` // weight/quantity descriptor, e.g. "500g"
	Servings  string          `json:"servings"`
	Count     int             `json:"count"`
}

// LineTotal is unit price times count. Never stored.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Count)))
}

// Snapshot is the cart as an observer sees it after a mutation.
type Snapshot struct {
	Version uint64
	Items   []LineItem
}

// Totals sums counts and line totals of the snapshot.
func (s Snapshot) Totals() (int, decimal.Decimal) {
	return totals(s.Items)
}

func totals(items []LineItem) (int, decimal.Decimal) {
	count := 0
	sum := decimal.Zero
	for _, it := range items {
		count += it.Count
		sum = sum.Add(it.LineTotal())
	}
	return count, sum
}
