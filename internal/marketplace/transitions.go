package marketplace

// Status is an order's position in the fulfillment workflow.
type Status string

const (
	StatusCreated   Status = "created"
	StatusAccepted  Status = "accepted"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
)

// transitions is the full order state graph. completed, disputed and
// cancelled are terminal; disputed resolves administratively, not through
// this graph.
var transitions = map[Status][]Status{
	StatusCreated:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted, StatusDisputed},
}

// CanTransition reports whether from -> to is a legal order transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

// PlatformFee returns the platform's cut of amount at feeBps basis points,
// floor division.
func PlatformFee(amount, feeBps int64) int64 {
	return amount * feeBps / 10000
}
