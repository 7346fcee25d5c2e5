package dto

import (
	"time"

	"social-publisher/domain/model"
)

// FacebookPage is a page the connecting user manages. The Instagram fields are
// empty when no business account is linked.
type FacebookPage struct {
	ID                 string
	Name               string
	AccessToken        string
	InstagramAccountID string
	InstagramUsername  string
}

type CredentialStatus struct {
	Provider    model.Provider `json:"provider"`
	Connected   bool           `json:"connected"`
	AccountID   string         `json:"account_id,omitempty"`
	AccountName string         `json:"account_name,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Expired     bool           `json:"expired"`
	Refreshable bool           `json:"refreshable"`
}

// ConnectResult lists the credentials stored by a completed OAuth connect.
type ConnectResult struct {
	Page      string           `json:"page"`
	Providers []model.Provider `json:"providers"`
}
