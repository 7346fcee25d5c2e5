package repository

import (
	"context"
	"time"
)

// IKeyValue is a small string store with per-key expiry.
type IKeyValue interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get reports false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Take returns and deletes the key in one step.
	Take(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}
