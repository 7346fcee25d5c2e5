package repository

import (
	"context"

	"social-publisher/domain/model"
)

// ICredential persists provider credentials. Save is a full replace keyed by id.
type ICredential interface {
	Upsert(ctx context.Context, c *model.Credential) error
	// GetActive returns nil, nil when the owner has no active credential for provider.
	GetActive(ctx context.Context, ownerID string, provider model.Provider) (*model.Credential, error)
	Save(ctx context.Context, c *model.Credential) error
	Deactivate(ctx context.Context, ownerID string, provider model.Provider) error
}

// ISecretVault encrypts secrets into storable envelopes.
type ISecretVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}
