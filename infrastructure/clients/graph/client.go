// Package graph talks to the Facebook and Instagram Graph APIs.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// Client is a thin Graph API transport: it encodes parameters, attaches the
// access token and turns error bodies into *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Get issues GET {base}/{path}?params and decodes the JSON answer into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// PostForm issues a form-encoded POST. form is either url.Values or a struct
// tagged for go-querystring.
func (c *Client) PostForm(ctx context.Context, path string, form any, out any) error {
	values, ok := form.(url.Values)
	if !ok {
		var err error
		if values, err = query.Values(form); err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
	}
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// ReadNode fetches fields of a node and discards the answer; it is used to
// check that a token can still see the node.
func (c *Client) ReadNode(ctx context.Context, accessToken, nodeID, fields string) error {
	params := url.Values{}
	params.Set("fields", fields)
	params.Set("access_token", accessToken)
	return c.Get(ctx, nodeID, params, nil)
}

func (c *Client) IsPermissionDenial(err error) bool { return IsPermissionDenial(err) }

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("graph %s %s: read body: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, body)
		logger.GetLogger().
			WithField("path", req.URL.Path).
			WithField("status", resp.StatusCode).
			WithField("code", apiErr.Code).
			WithField("subcode", apiErr.Subcode).
			Warn("graph request failed")
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("graph %s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id,omitempty"`
}

func tokenParams(accessToken string) url.Values {
	v := url.Values{}
	v.Set("access_token", accessToken)
	return v
}
