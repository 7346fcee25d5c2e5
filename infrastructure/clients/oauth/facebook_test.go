package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookCodeExchanger_AuthCodeURL(t *testing.T) {
	e := NewFacebookCodeExchanger("cid", "secret", "https://app.test/auth/facebook/callback", "", "", nil, nil)

	u, err := url.Parse(e.AuthCodeURL("st-1"))
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", u.Host)
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "st-1", u.Query().Get("state"))
	assert.Contains(t, u.Query().Get("scope"), "pages_manage_posts")
	assert.True(t, e.Configured())
}

func TestFacebookCodeExchanger_Exchange(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "https://graph.test/oauth/access_token", func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "authorization_code", req.PostForm.Get("grant_type"))
		assert.Equal(t, "code-1", req.PostForm.Get("code"))
		return httpmock.NewJsonResponse(200, map[string]any{"access_token": "short-user", "token_type": "bearer", "expires_in": 5000})
	})

	e := NewFacebookCodeExchanger("cid", "secret", "https://app.test/cb", "", "https://graph.test/oauth/access_token", nil, &http.Client{Transport: mt})
	token, err := e.Exchange(context.Background(), "code-1")

	require.NoError(t, err)
	assert.Equal(t, "short-user", token)
}

func TestFacebookCodeExchanger_NotConfigured(t *testing.T) {
	assert.False(t, NewFacebookCodeExchanger("", "", "", "", "", nil, nil).Configured())
}
