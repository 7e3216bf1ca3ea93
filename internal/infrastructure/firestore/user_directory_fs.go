package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

// UserDirectory resolves a user's contact email from the users collection. A
// missing user or blank field reads as "no email on file", not an error.
type UserDirectory struct {
	client *firestore.Client
}

func NewUserDirectory(client *firestore.Client) *UserDirectory {
	return &UserDirectory{client: client}
}

type userDoc struct {
	Email string `firestore:"email"`
}

func (d *UserDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	snap, err := d.client.Collection(colUsers).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}

	var u userDoc
	if err := snap.DataTo(&u); err != nil {
		return "", err
	}
	return u.Email, nil
}
