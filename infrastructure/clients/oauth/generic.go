// Package oauth wraps golang.org/x/oauth2 for the connect flow and generic-oauth refreshes.
package oauth

import (
	"context"
	"net/http"
	"time"

	"social-publisher/domain/dto"

	"golang.org/x/oauth2"
)

type GenericRefresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func NewGenericRefresher(clientID, clientSecret, authURL, tokenURL string, httpClient *http.Client) *GenericRefresher {
	return &GenericRefresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL},
		},
		httpClient: httpClient,
	}
}

// Refresh runs the refresh_token grant. A provider that rotates refresh tokens
// returns the new one in the grant.
func (r *GenericRefresher) Refresh(ctx context.Context, refreshSecret string) (*dto.TokenGrant, error) {
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	// An already-expired token forces the source to hit the token endpoint.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshSecret, Expiry: time.Unix(1, 0)})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	grant := &dto.TokenGrant{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if tok.RefreshToken != refreshSecret {
		grant.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return grant, nil
}
