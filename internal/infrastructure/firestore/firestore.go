// Package firestore holds the Cloud Firestore backed repositories. Each
// repository wraps a shared *firestore.Client and maps provider errors to the
// domain sentinels callers branch on.
package firestore

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colOrders    = "orders"
	colProducts  = "products"
	colMovements = "stock_movements"
	colCarts     = "carts"
	colInvoices  = "invoices"
	colUsers     = "users"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// movementDocID flattens the (order, product) pair into a legal document ID;
// slashes would read as subcollection separators.
func movementDocID(orderID, productID string) string {
	return strings.ReplaceAll(orderID, "/", "_") + "__" + strings.ReplaceAll(productID, "/", "_")
}
