package invoice

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("invoice: not found")

type Status string

const StatusIssued Status = "issued"

// Invoice is an append-only billing record written at finalization. It is not
// idempotency-guarded on its own; the finalize gate upstream keeps duplicates
// to crash-retry windows only.
type Invoice struct {
	ID          string
	OrderID     string
	UserID      string
	Amount      int64 // minor currency units
	Status      Status
	DocumentURL string
	CreatedAt   time.Time
}

func New(id, orderID, userID string, amount int64, documentURL string) *Invoice {
	return &Invoice{
		ID:          id,
		OrderID:     orderID,
		UserID:      userID,
		Amount:      amount,
		Status:      StatusIssued,
		DocumentURL: documentURL,
		CreatedAt:   time.Now().UTC(),
	}
}
