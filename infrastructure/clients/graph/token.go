package graph

import (
	"context"
	"errors"
	"net/url"

	"social-publisher/domain/dto"
)

// FacebookRefresher trades a long-lived user token for a fresh one via fb_exchange_token.
type FacebookRefresher struct {
	client       *Client
	clientID     string
	clientSecret string
}

func NewFacebookRefresher(client *Client, clientID, clientSecret string) *FacebookRefresher {
	return &FacebookRefresher{client: client, clientID: clientID, clientSecret: clientSecret}
}

func (r *FacebookRefresher) Refresh(ctx context.Context, refreshSecret string) (*dto.TokenGrant, error) {
	return ExchangeLongLived(ctx, r.client, r.clientID, r.clientSecret, refreshSecret)
}

// ExchangeLongLived swaps a short-lived user token for a long-lived one.
func ExchangeLongLived(ctx context.Context, client *Client, clientID, clientSecret, token string) (*dto.TokenGrant, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", clientID)
	params.Set("client_secret", clientSecret)
	params.Set("fb_exchange_token", token)
	var grant dto.TokenGrant
	if err := client.Get(ctx, "oauth/access_token", params, &grant); err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, errors.New("facebook token exchange returned no access token")
	}
	return &grant, nil
}

// InstagramRefresher extends a long-lived Instagram token against graph.instagram.com.
type InstagramRefresher struct {
	client *Client
}

func NewInstagramRefresher(client *Client) *InstagramRefresher {
	return &InstagramRefresher{client: client}
}

func (r *InstagramRefresher) Refresh(ctx context.Context, refreshSecret string) (*dto.TokenGrant, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", refreshSecret)
	var grant dto.TokenGrant
	if err := r.client.Get(ctx, "refresh_access_token", params, &grant); err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, errors.New("instagram refresh returned no access token")
	}
	return &grant, nil
}

// Page is a Facebook page the user manages, with its linked IG business account.
type Page struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AccessToken       string `json:"access_token"`
	InstagramBusiness *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"instagram_business_account,omitempty"`
}

// ListPages returns the pages visible to a user token.
func ListPages(ctx context.Context, client *Client, userToken string) ([]Page, error) {
	params := tokenParams(userToken)
	params.Set("fields", "id,name,access_token,instagram_business_account{id,username}")
	var out struct {
		Data []Page `json:"data"`
	}
	if err := client.Get(ctx, "me/accounts", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FacebookAccounts serves the connect flow: long-lived exchange plus page listing.
type FacebookAccounts struct {
	client       *Client
	clientID     string
	clientSecret string
}

func NewFacebookAccounts(client *Client, clientID, clientSecret string) *FacebookAccounts {
	return &FacebookAccounts{client: client, clientID: clientID, clientSecret: clientSecret}
}

func (a *FacebookAccounts) ExchangeLongLived(ctx context.Context, token string) (*dto.TokenGrant, error) {
	return ExchangeLongLived(ctx, a.client, a.clientID, a.clientSecret, token)
}

func (a *FacebookAccounts) ListPages(ctx context.Context, userToken string) ([]dto.FacebookPage, error) {
	pages, err := ListPages(ctx, a.client, userToken)
	if err != nil {
		return nil, err
	}
	out := make([]dto.FacebookPage, 0, len(pages))
	for _, p := range pages {
		page := dto.FacebookPage{ID: p.ID, Name: p.Name, AccessToken: p.AccessToken}
		if p.InstagramBusiness != nil {
			page.InstagramAccountID = p.InstagramBusiness.ID
			page.InstagramUsername = p.InstagramBusiness.Username
		}
		out = append(out, page)
	}
	return out, nil
}
