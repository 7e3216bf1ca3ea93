package ledger

import (
	"errors"
	"time"
)

var (
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	ErrInvalidQuantity   = errors.New("ledger: quantity must be greater than zero")
)

// Movement records one committed stock decrement. The (order, product) key is
// what makes finalize retries safe: a decrement is applied at most once per
// pair no matter how many times the sequence is attempted.
type Movement struct {
	OrderID    string
	ProductID  string
	Quantity   int
	OccurredAt time.Time
}

// Key is the movement document key; deterministic so replays collide.
func Key(orderID, productID string) string {
	return orderID + "/" + productID
}
