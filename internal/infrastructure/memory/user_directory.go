package memory

import (
	"context"
	"sync"
)

// UserDirectory is a map-backed email lookup for tests and local runs.
type UserDirectory struct {
	mu     sync.RWMutex
	emails map[string]string
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{emails: make(map[string]string)}
}

func (d *UserDirectory) Set(userID, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails[userID] = email
}

func (d *UserDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	_ = ctx

	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.emails[userID], nil
}
