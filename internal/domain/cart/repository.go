package cart

import "context"

// Repository stores transient cart entries per user. List on an unknown user
// returns an empty slice, and Clear is safe to repeat.
type Repository interface {
	List(ctx context.Context, userID string) ([]Entry, error)
	Put(ctx context.Context, userID string, e Entry) error
	Clear(ctx context.Context, userID string) error
}
