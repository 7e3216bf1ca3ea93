package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"storefront/internal/domain/cart"
)

// CartRepository stores one document per user holding the whole cart, so a
// Put is a read-modify-write transaction over a small array.
type CartRepository struct {
	client *firestore.Client
}

func NewCartRepository(client *firestore.Client) *CartRepository {
	return &CartRepository{client: client}
}

type cartDoc struct {
	Items     []cartEntryDoc `firestore:"items"`
	UpdatedAt time.Time      `firestore:"updatedAt"`
}

type cartEntryDoc struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
}

func (r *CartRepository) col() *firestore.CollectionRef {
	return r.client.Collection(colCarts)
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]cart.Entry, error) {
	snap, err := r.col().Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var d cartDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	entries := make([]cart.Entry, 0, len(d.Items))
	for _, it := range d.Items {
		entries = append(entries, cart.Entry{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return entries, nil
}

func (r *CartRepository) Put(ctx context.Context, userID string, e cart.Entry) error {
	docRef := r.col().Doc(userID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var d cartDoc
		snap, err := tx.Get(docRef)
		if err == nil {
			if err := snap.DataTo(&d); err != nil {
				return err
			}
		} else if !isNotFound(err) {
			return err
		}

		replaced := false
		items := d.Items[:0]
		for _, it := range d.Items {
			if it.ProductID == e.ProductID {
				replaced = true
				if e.Quantity > 0 {
					items = append(items, cartEntryDoc{ProductID: e.ProductID, Quantity: e.Quantity})
				}
				continue
			}
			items = append(items, it)
		}
		if !replaced && e.Quantity > 0 {
			items = append(items, cartEntryDoc{ProductID: e.ProductID, Quantity: e.Quantity})
		}

		return tx.Set(docRef, cartDoc{Items: items, UpdatedAt: time.Now().UTC()})
	})
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.col().Doc(userID).Delete(ctx)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
