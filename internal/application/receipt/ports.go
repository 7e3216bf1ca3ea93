package receipt

import (
	"context"

	"storefront/internal/domain/order"
)

// Renderer turns an order's line items into a binary invoice document.
// The rendering engine is a black box behind this port.
type Renderer interface {
	Render(ctx context.Context, o *order.Order) ([]byte, error)
}

// DocumentStore persists rendered documents under caller-chosen keys and
// returns a durable URL. Put must tolerate a missing backing container by
// creating it once and retrying the write exactly once.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment // optional
}

// Mailer dispatches transactional email. Delivery itself is a black box.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
