package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/google/uuid"
)

const (
	oauthStatePrefix = "oauth:state:"
	oauthStateTTL    = 10 * time.Minute
)

var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrInvalidOAuthState = errors.New("oauth state is invalid or expired")
	ErrNoManagedPages    = errors.New("the account manages no facebook pages")
	ErrConnectDisabled   = errors.New("facebook oauth is not configured")
)

// ICodeExchanger runs the browser authorization code grant.
type ICodeExchanger interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// IFacebookAccounts resolves a user token into long-lived page credentials.
type IFacebookAccounts interface {
	ExchangeLongLived(ctx context.Context, token string) (*dto.TokenGrant, error)
	ListPages(ctx context.Context, userToken string) ([]dto.FacebookPage, error)
}

type ICredentialUsecase interface {
	Status(ctx context.Context, ownerID string) ([]dto.CredentialStatus, error)
	Disconnect(ctx context.Context, ownerID string, provider model.Provider) error
	CheckPermissions(ctx context.Context, ownerID string, provider model.Provider) (ProbeResult, error)
	BeginFacebookConnect(ctx context.Context, ownerID string) (string, string, error)
	CompleteFacebookConnect(ctx context.Context, state, code, pageID string) (*dto.ConnectResult, error)
}

type CredentialUsecase struct {
	creds     repository.ICredential
	vault     repository.ISecretVault
	tokens    ITokenManager
	prober    IPermissionProber
	kv        repository.IKeyValue
	exchanger ICodeExchanger
	accounts  IFacebookAccounts
	now       func() time.Time
}

func NewCredentialUsecase(creds repository.ICredential, vault repository.ISecretVault, tokens ITokenManager, prober IPermissionProber, kv repository.IKeyValue, exchanger ICodeExchanger, accounts IFacebookAccounts) ICredentialUsecase {
	return &CredentialUsecase{
		creds:     creds,
		vault:     vault,
		tokens:    tokens,
		prober:    prober,
		kv:        kv,
		exchanger: exchanger,
		accounts:  accounts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var statusProviders = []model.Provider{model.ProviderInstagramGraph, model.ProviderFacebookGraph, model.ProviderGenericOAuth}

func (u *CredentialUsecase) Status(ctx context.Context, ownerID string) ([]dto.CredentialStatus, error) {
	now := u.now()
	out := make([]dto.CredentialStatus, 0, len(statusProviders))
	for _, p := range statusProviders {
		cred, err := u.creds.GetActive(ctx, ownerID, p)
		if err != nil {
			return nil, fmt.Errorf("load %s credential: %w", p, err)
		}
		st := dto.CredentialStatus{Provider: p}
		if cred != nil {
			st.Connected = true
			st.AccountID = cred.AccountID
			if cred.AccountName != nil {
				st.AccountName = *cred.AccountName
			}
			st.ExpiresAt = cred.ExpiresAt
			st.Expired = cred.IsExpired(now)
			st.Refreshable = cred.HasRefreshSecret()
		}
		out = append(out, st)
	}
	return out, nil
}

func (u *CredentialUsecase) Disconnect(ctx context.Context, ownerID string, provider model.Provider) error {
	if !provider.Valid() {
		return ErrUnknownProvider
	}
	if err := u.creds.Deactivate(ctx, ownerID, provider); err != nil {
		return fmt.Errorf("deactivate %s credential: %w", provider, err)
	}
	logger.GetLogger().WithField("owner_id", ownerID).WithField("provider", provider).Info("credential disconnected")
	return nil
}

func (u *CredentialUsecase) CheckPermissions(ctx context.Context, ownerID string, provider model.Provider) (ProbeResult, error) {
	if !provider.Valid() {
		return ProbeResult{}, ErrUnknownProvider
	}
	cred, err := u.creds.GetActive(ctx, ownerID, provider)
	if err != nil {
		return ProbeResult{}, err
	}
	if cred == nil {
		return ProbeResult{}, &apperror.CredentialMissingError{Platform: platformOf(provider)}
	}
	token, err := u.tokens.GetUsableAccessSecret(ctx, cred)
	if err != nil {
		return ProbeResult{}, err
	}
	pageID := ""
	if cred.PageID != nil {
		pageID = *cred.PageID
	}
	return u.prober.Probe(ctx, token, cred.AccountID, pageID), nil
}

// BeginFacebookConnect returns the consent URL and the state bound to ownerID.
func (u *CredentialUsecase) BeginFacebookConnect(ctx context.Context, ownerID string) (string, string, error) {
	if u.exchanger == nil || !u.exchanger.Configured() {
		return "", "", ErrConnectDisabled
	}
	state := uuid.NewString()
	if err := u.kv.Set(ctx, oauthStatePrefix+state, ownerID, oauthStateTTL); err != nil {
		return "", "", fmt.Errorf("store oauth state: %w", err)
	}
	return u.exchanger.AuthCodeURL(state), state, nil
}

// CompleteFacebookConnect finishes the OAuth callback. It stores a facebook-graph
// credential for the chosen page (the first one when pageID is empty) and an
// instagram-graph credential when the page has a linked business account.
func (u *CredentialUsecase) CompleteFacebookConnect(ctx context.Context, state, code, pageID string) (*dto.ConnectResult, error) {
	if u.exchanger == nil || !u.exchanger.Configured() {
		return nil, ErrConnectDisabled
	}
	ownerID, ok, err := u.kv.Take(ctx, oauthStatePrefix+state)
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}
	if !ok || ownerID == "" {
		return nil, ErrInvalidOAuthState
	}
	lg := logger.GetLogger().WithField("owner_id", ownerID)

	short, err := u.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	long, err := u.accounts.ExchangeLongLived(ctx, short)
	if err != nil {
		return nil, fmt.Errorf("long-lived exchange: %w", err)
	}
	pages, err := u.accounts.ListPages(ctx, long.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	page, err := pickPage(pages, pageID)
	if err != nil {
		return nil, err
	}

	// page tokens derived from a long-lived user token do not expire
	access, err := u.vault.Encrypt(page.AccessToken)
	if err != nil {
		return nil, err
	}
	result := &dto.ConnectResult{Page: page.ID}
	fb := &model.Credential{
		OwnerID:      ownerID,
		Provider:     model.ProviderFacebookGraph,
		AccountID:    page.ID,
		AccountName:  optional(page.Name),
		PageID:       optional(page.ID),
		AccessSecret: access,
		Scopes:       []string{"pages_manage_posts", "pages_read_engagement"},
	}
	if err := u.creds.Upsert(ctx, fb); err != nil {
		return nil, fmt.Errorf("store facebook credential: %w", err)
	}
	result.Providers = append(result.Providers, model.ProviderFacebookGraph)

	if page.InstagramAccountID != "" {
		ig := &model.Credential{
			OwnerID:      ownerID,
			Provider:     model.ProviderInstagramGraph,
			AccountID:    page.InstagramAccountID,
			AccountName:  optional(page.InstagramUsername),
			PageID:       optional(page.ID),
			AccessSecret: access,
			Scopes:       []string{"instagram_basic", "instagram_content_publish"},
		}
		if err := u.creds.Upsert(ctx, ig); err != nil {
			return nil, fmt.Errorf("store instagram credential: %w", err)
		}
		result.Providers = append(result.Providers, model.ProviderInstagramGraph)
	}
	lg.WithField("page_id", page.ID).WithField("providers", result.Providers).Info("facebook connected")
	return result, nil
}

func pickPage(pages []dto.FacebookPage, pageID string) (*dto.FacebookPage, error) {
	if len(pages) == 0 {
		return nil, ErrNoManagedPages
	}
	if pageID == "" {
		return &pages[0], nil
	}
	for i := range pages {
		if pages[i].ID == pageID {
			return &pages[i], nil
		}
	}
	return nil, fmt.Errorf("page %s is not managed by this account", pageID)
}

func platformOf(p model.Provider) model.Platform {
	switch p {
	case model.ProviderInstagramGraph:
		return model.PlatformInstagram
	case model.ProviderFacebookGraph:
		return model.PlatformFacebook
	}
	return model.Platform(p)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
