package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"storefront/internal/domain/order"
)

type OrderRepository struct {
	client *firestore.Client
}

func NewOrderRepository(client *firestore.Client) *OrderRepository {
	return &OrderRepository{client: client}
}

type orderDoc struct {
	UserID     string        `firestore:"userId"`
	Items      []lineItemDoc `firestore:"items"`
	Total      int64         `firestore:"total"`
	Status     string        `firestore:"status"`
	InvoiceURL string        `firestore:"invoiceUrl"`
	CreatedAt  time.Time     `firestore:"createdAt"`
	UpdatedAt  time.Time     `firestore:"updatedAt"`
}

type lineItemDoc struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	Quantity    int    `firestore:"quantity"`
	UnitPrice   int64  `firestore:"unitPrice"`
}

func orderToDoc(o *order.Order) orderDoc {
	items := make([]lineItemDoc, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, lineItemDoc{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}
	return orderDoc{
		UserID:     o.UserID,
		Items:      items,
		Total:      o.Total,
		Status:     string(o.Status),
		InvoiceURL: o.InvoiceURL,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func docToOrder(id string, d orderDoc) *order.Order {
	items := make([]order.LineItem, 0, len(d.Items))
	for _, li := range d.Items {
		items = append(items, order.LineItem{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}
	return &order.Order{
		ID:         id,
		UserID:     d.UserID,
		Items:      items,
		Total:      d.Total,
		Status:     order.Status(d.Status),
		InvoiceURL: d.InvoiceURL,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *OrderRepository) col() *firestore.CollectionRef {
	return r.client.Collection(colOrders)
}

// Insert writes the order and all its line items as one document, so the
// snapshot is committed atomically.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	if o == nil || o.ID == "" {
		return errors.New("order repository: id is required")
	}

	if _, err := r.col().Doc(o.ID).Create(ctx, orderToDoc(o)); err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("order repository: duplicate id %s", o.ID)
		}
		return err
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}

	var d orderDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return docToOrder(snap.Ref.ID, d), nil
}

// MarkPaid flips PENDING_PAYMENT to PAID inside a transaction; any concurrent
// writer loses the race and observes the terminal state instead.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, invoiceURL string) error {
	docRef := r.col().Doc(id)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if isNotFound(err) {
				return order.ErrNotFound
			}
			return err
		}

		var d orderDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}

		switch order.Status(d.Status) {
		case order.StatusPendingPayment:
		case order.StatusPaid:
			return order.ErrAlreadyPaid
		default:
			return order.ErrInvalidTransition
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: string(order.StatusPaid)},
			{Path: "invoiceUrl", Value: invoiceURL},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
}

func (r *OrderRepository) Cancel(ctx context.Context, id string) error {
	docRef := r.col().Doc(id)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if isNotFound(err) {
				return order.ErrNotFound
			}
			return err
		}

		var d orderDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}

		if order.Status(d.Status) != order.StatusPendingPayment {
			return order.ErrInvalidTransition
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: string(order.StatusCancelled)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
}
