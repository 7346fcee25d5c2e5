package oauth

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericRefresher(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "https://auth.test/token", func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "refresh_token", req.PostForm.Get("grant_type"))
		assert.Equal(t, "r-old", req.PostForm.Get("refresh_token"))
		return httpmock.NewJsonResponse(200, map[string]any{
			"access_token":  "a-new",
			"refresh_token": "r-new",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	r := NewGenericRefresher("cid", "csecret", "https://auth.test/authorize", "https://auth.test/token", &http.Client{Transport: mt})
	grant, err := r.Refresh(context.Background(), "r-old")

	require.NoError(t, err)
	assert.Equal(t, "a-new", grant.AccessToken)
	assert.Equal(t, "r-new", grant.RefreshToken)
	assert.InDelta(t, 3600, grant.ExpiresIn, 5)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestGenericRefresher_Failure(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, "https://auth.test/token",
		httpmock.NewStringResponder(400, `{"error":"invalid_grant"}`))

	r := NewGenericRefresher("cid", "csecret", "", "https://auth.test/token", &http.Client{Transport: mt})
	_, err := r.Refresh(context.Background(), "r-old")
	require.Error(t, err)
}
