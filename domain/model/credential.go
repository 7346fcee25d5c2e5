package model

import (
	"time"
)

// Provider identifies which remote API a credential authenticates against.
type Provider string

const (
	ProviderInstagramGraph Provider = "instagram-graph"
	ProviderFacebookGraph  Provider = "facebook-graph"
	ProviderGenericOAuth   Provider = "generic-oauth"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderInstagramGraph, ProviderFacebookGraph, ProviderGenericOAuth:
		return true
	}
	return false
}

// Credential stores a provider account's secrets. AccessSecret and RefreshSecret hold
// vault envelopes (nonce:tag:ciphertext), never plaintext.
type Credential struct {
	ID             int64      `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Provider       Provider   `json:"provider"`
	AccountID      string     `json:"account_id"`
	AccountName    *string    `json:"account_name,omitempty"`
	PageID         *string    `json:"page_id,omitempty"`
	AccessSecret   string     `json:"-"`
	RefreshSecret  *string    `json:"-"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Scopes         []string   `json:"scopes"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// IsExpired reports whether the tracked expiry is at or before now. A credential
// without an expiry never expires.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

func (c *Credential) HasRefreshSecret() bool {
	return c.RefreshSecret != nil && *c.RefreshSecret != ""
}

// MissingFields lists the fields a publish attempt needs but the credential lacks.
func (c *Credential) MissingFields() []string {
	var missing []string
	if c.AccessSecret == "" {
		missing = append(missing, "access_secret")
	}
	if c.AccountID == "" {
		missing = append(missing, "account_id")
	}
	if c.Provider == ProviderFacebookGraph && (c.PageID == nil || *c.PageID == "") {
		missing = append(missing, "page_id")
	}
	return missing
}
