package oauth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

var DefaultFacebookScopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_posts",
	"instagram_basic",
	"instagram_content_publish",
	"public_profile",
}

// CodeExchanger runs the authorization code grant for one provider.
type CodeExchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewFacebookCodeExchanger uses the facebook endpoint unless authURL/tokenURL override it.
func NewFacebookCodeExchanger(clientID, clientSecret, redirectURI, authURL, tokenURL string, scopes []string, httpClient *http.Client) *CodeExchanger {
	endpoint := facebook.Endpoint
	if authURL != "" {
		endpoint.AuthURL = authURL
	}
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	if len(scopes) == 0 {
		scopes = DefaultFacebookScopes
	}
	return &CodeExchanger{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		httpClient: httpClient,
	}
}

func (e *CodeExchanger) Configured() bool {
	return e.config.ClientID != "" && e.config.RedirectURL != ""
}

func (e *CodeExchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a user access token.
func (e *CodeExchanger) Exchange(ctx context.Context, code string) (string, error) {
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}
	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("code exchange returned no access token")
	}
	return tok.AccessToken, nil
}
