package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/ledger"
)

// CatalogStore serves product reads and runs the stock ledger. A decrement
// writes the product stock and the movement document in one transaction, so a
// movement exists if and only if the stock it accounts for was taken.
type CatalogStore struct {
	client *firestore.Client
}

func NewCatalogStore(client *firestore.Client) *CatalogStore {
	return &CatalogStore{client: client}
}

type productDoc struct {
	Name          string    `firestore:"name"`
	Price         int64     `firestore:"price"`
	DiscountPrice int64     `firestore:"discountPrice"`
	Stock         int       `firestore:"stock"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type movementDoc struct {
	OrderID    string    `firestore:"orderId"`
	ProductID  string    `firestore:"productId"`
	Quantity   int       `firestore:"quantity"`
	OccurredAt time.Time `firestore:"occurredAt"`
}

func (s *CatalogStore) products() *firestore.CollectionRef {
	return s.client.Collection(colProducts)
}

func (s *CatalogStore) movements() *firestore.CollectionRef {
	return s.client.Collection(colMovements)
}

func (s *CatalogStore) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	snap, err := s.products().Doc(productID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}

	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &catalog.Product{
		ID:            snap.Ref.ID,
		Name:          d.Name,
		Price:         d.Price,
		DiscountPrice: d.DiscountPrice,
		Stock:         d.Stock,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func (s *CatalogStore) Decrement(ctx context.Context, orderID, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, ledger.ErrInvalidQuantity
	}

	moveRef := s.movements().Doc(movementDocID(orderID, productID))
	prodRef := s.products().Doc(productID)

	applied := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(moveRef); err == nil {
			// Movement already recorded for this pair, the decrement happened.
			return nil
		} else if !isNotFound(err) {
			return err
		}

		snap, err := tx.Get(prodRef)
		if err != nil {
			if isNotFound(err) {
				return catalog.ErrNotFound
			}
			return err
		}

		var d productDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		if d.Stock < qty {
			return ledger.ErrInsufficientStock
		}

		now := time.Now().UTC()
		if err := tx.Update(prodRef, []firestore.Update{
			{Path: "stock", Value: d.Stock - qty},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if err := tx.Create(moveRef, movementDoc{
			OrderID:    orderID,
			ProductID:  productID,
			Quantity:   qty,
			OccurredAt: now,
		}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *CatalogStore) Restore(ctx context.Context, orderID, productID string) error {
	moveRef := s.movements().Doc(movementDocID(orderID, productID))
	prodRef := s.products().Doc(productID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		moveSnap, err := tx.Get(moveRef)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}

		var m movementDoc
		if err := moveSnap.DataTo(&m); err != nil {
			return err
		}

		prodSnap, err := tx.Get(prodRef)
		if err != nil {
			if isNotFound(err) {
				// Product gone; still retire the movement so the pair can be
				// decided again if the product reappears.
				return tx.Delete(moveRef)
			}
			return err
		}

		var d productDoc
		if err := prodSnap.DataTo(&d); err != nil {
			return err
		}

		if err := tx.Update(prodRef, []firestore.Update{
			{Path: "stock", Value: d.Stock + m.Quantity},
			{Path: "updatedAt", Value: time.Now().UTC()},
		}); err != nil {
			return err
		}
		return tx.Delete(moveRef)
	})
}
