package dto

import (
	"time"

	"social-publisher/domain/model"
)

// MediaItem is one normalized asset of a post.
type MediaItem struct {
	URL  string
	Kind model.MediaKind
}

// ContainerRequest describes phase 1 of a publish attempt. Kind is the kind of
// the first item and decides the polling policy.
type ContainerRequest struct {
	AccessToken string
	AccountID   string
	PageID      string
	Media       []MediaItem
	Kind        model.MediaKind
	Subtype     model.Subtype
	Caption     string
}

// PrimaryMediaURL is the asset a single-media container is built from.
func (r *ContainerRequest) PrimaryMediaURL() string {
	if len(r.Media) == 0 {
		return ""
	}
	return r.Media[0].URL
}

// PublishContainerRequest describes phase 3 of a publish attempt.
type PublishContainerRequest struct {
	AccessToken string
	AccountID   string
	PageID      string
	ContainerID string
	Kind        model.MediaKind
	Subtype     model.Subtype
	Caption     string
}

// TokenGrant is what a provider hands back from an authorization or refresh exchange.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// ExpiresAt converts ExpiresIn into an absolute instant; nil when the provider sent none.
func (g *TokenGrant) ExpiresAt(now time.Time) *time.Time {
	if g.ExpiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(g.ExpiresIn) * time.Second).UTC()
	return &t
}

// CreatePublishJobRequest is the API body for creating a job.
type CreatePublishJobRequest struct {
	Platforms   []model.Platform `json:"platforms"`
	Media       []string         `json:"media"`
	Caption     string           `json:"caption"`
	Hashtags    []string         `json:"hashtags"`
	Subtype     model.Subtype    `json:"subtype"`
	ScheduledAt *time.Time       `json:"scheduled_at"`
	Draft       bool             `json:"draft"`
}

// AppendMetadataRequest carries the fields that stay editable after publishing.
type AppendMetadataRequest struct {
	Tags     []string `json:"tags"`
	Location *string  `json:"location"`
}

// PublishOutcome is the orchestrator's unified view of one job run.
type PublishOutcome struct {
	JobID   string                                  `json:"job_id"`
	State   model.JobState                          `json:"state"`
	Results map[model.Platform]*model.PublishResult `json:"results"`
	Errors  []model.PlatformError                   `json:"errors"`
}

// Res is the envelope used for error responses.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}
