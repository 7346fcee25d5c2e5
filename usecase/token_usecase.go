package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/apperror"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

type ITokenManager interface {
	// GetUsableAccessSecret returns a plaintext access secret that is valid now,
	// refreshing and persisting the credential first when it has expired.
	GetUsableAccessSecret(ctx context.Context, cred *model.Credential) (string, error)
}

type tokenManager struct {
	vault      repository.ISecretVault
	creds      repository.ICredential
	refreshers map[model.Provider]repository.ITokenRefresher
	metrics    IPublishMetrics
	now        func() time.Time
}

func NewTokenManager(vault repository.ISecretVault, creds repository.ICredential, refreshers map[model.Provider]repository.ITokenRefresher, metrics IPublishMetrics) ITokenManager {
	return &tokenManager{
		vault:      vault,
		creds:      creds,
		refreshers: refreshers,
		metrics:    metricsOrNoop(metrics),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *tokenManager) GetUsableAccessSecret(ctx context.Context, cred *model.Credential) (string, error) {
	now := m.now()
	if !cred.IsExpired(now) {
		return m.vault.Decrypt(cred.AccessSecret)
	}
	if !cred.HasRefreshSecret() {
		return "", &apperror.CredentialExpiredError{Provider: cred.Provider, CredentialID: cred.ID}
	}

	lg := logger.GetLogger().WithField("credential_id", cred.ID).WithField("provider", cred.Provider)
	refresher, ok := m.refreshers[cred.Provider]
	if !ok {
		return "", &apperror.RefreshFailedError{Provider: cred.Provider, Err: fmt.Errorf("no refresher for %s", cred.Provider)}
	}
	refreshSecret, err := m.vault.Decrypt(*cred.RefreshSecret)
	if err != nil {
		return "", err
	}

	grant, err := refresher.Refresh(ctx, refreshSecret)
	if err != nil {
		m.metrics.ObserveTokenRefresh(string(cred.Provider), false)
		lg.WithField("error", err).Warn("token refresh failed")
		return "", &apperror.RefreshFailedError{Provider: cred.Provider, Err: err}
	}
	m.metrics.ObserveTokenRefresh(string(cred.Provider), true)

	// build the replacement first so a vault failure leaves cred untouched
	access, err := m.vault.Encrypt(grant.AccessToken)
	if err != nil {
		return "", err
	}
	refresh := cred.RefreshSecret
	if grant.RefreshToken != "" {
		sealed, err := m.vault.Encrypt(grant.RefreshToken)
		if err != nil {
			return "", err
		}
		refresh = &sealed
	}

	updated := *cred
	updated.AccessSecret = access
	updated.RefreshSecret = refresh
	updated.ExpiresAt = grant.ExpiresAt(now)
	if err := m.creds.Save(ctx, &updated); err != nil {
		return "", fmt.Errorf("save refreshed credential: %w", err)
	}
	*cred = updated
	lg.WithField("expires_at", cred.ExpiresAt).Info("token refreshed")
	return grant.AccessToken, nil
}
