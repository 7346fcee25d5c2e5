package model

import "time"

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// Provider maps a publish target to the credential provider that authorizes it.
func (p Platform) Provider() Provider {
	switch p {
	case PlatformInstagram:
		return ProviderInstagramGraph
	case PlatformFacebook:
		return ProviderFacebookGraph
	}
	return ""
}

type Subtype string

const (
	SubtypePost     Subtype = "post"
	SubtypeStory    Subtype = "story"
	SubtypeReel     Subtype = "reel"
	SubtypeCarousel Subtype = "carousel"
)

// IsVertical reports whether the subtype is displayed full screen (9:16).
func (s Subtype) IsVertical() bool {
	return s == SubtypeStory || s == SubtypeReel
}

type JobState string

const (
	JobStateDraft     JobState = "draft"
	JobStateScheduled JobState = "scheduled"
	JobStatePending   JobState = "pending"
	JobStatePublished JobState = "published"
	JobStateFailed    JobState = "failed"
)

func (s JobState) IsTerminal() bool {
	return s == JobStatePublished || s == JobStateFailed
}

// PublishJob is a request to publish one logical post to one or more platforms.
type PublishJob struct {
	ID          string                      `json:"id" bson:"_id"`
	OwnerID     string                      `json:"owner_id" bson:"owner_id"`
	Platforms   []Platform                  `json:"platforms" bson:"platforms"`
	Media       []string                    `json:"media" bson:"media"`
	Caption     string                      `json:"caption" bson:"caption"`
	Hashtags    []string                    `json:"hashtags,omitempty" bson:"hashtags,omitempty"`
	Subtype     Subtype                     `json:"subtype" bson:"subtype"`
	ScheduledAt *time.Time                  `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	State       JobState                    `json:"state" bson:"state"`
	Results     map[Platform]*PublishResult `json:"results,omitempty" bson:"results,omitempty"`
	Errors      []PlatformError             `json:"errors,omitempty" bson:"errors,omitempty"`
	Tags        []string                    `json:"tags,omitempty" bson:"tags,omitempty"`
	Location    *string                     `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt   time.Time                   `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at" bson:"updated_at"`
	PublishedAt *time.Time                  `json:"published_at,omitempty" bson:"published_at,omitempty"`
}

// PrimaryMedia returns the first media reference, or "" when the job has none.
func (j *PublishJob) PrimaryMedia() string {
	if len(j.Media) == 0 {
		return ""
	}
	return j.Media[0]
}

// IsDue reports whether a scheduled job should be picked up at now.
func (j *PublishJob) IsDue(now time.Time) bool {
	if j.State != JobStateScheduled {
		return false
	}
	return j.ScheduledAt == nil || !j.ScheduledAt.After(now)
}
