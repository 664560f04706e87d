package orders

// Stage is one checkpoint on the order tracking bar.
type Stage struct {
	Status  string `json:"status"`
	Label   string `json:"label"`
	Reached bool   `json:"reached"`
	Current bool   `json:"current"`
}

var stages = []struct {
	status string
	label  string
}{
	{StatusReceived, "Order Received"},
	{StatusCleaningAndCutting, "Cleaning & Cutting"},
	{StatusDispatched, "Dispatched"},
	{StatusDelivered, "Delivered"},
}

// Tracker returns the four tracking stages for status. Stages up to and including
// status are reached; an unknown status reaches none.
func Tracker(status string) []Stage {
	pos := -1
	for i, s := range stages {
		if s.status == status {
			pos = i
			break
		}
	}
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = Stage{
			Status:  s.status,
			Label:   s.label,
			Reached: i <= pos,
			Current: i == pos,
		}
	}
	return out
}
