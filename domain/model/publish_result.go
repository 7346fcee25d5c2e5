package model

import "time"

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

type ContainerStatus string

const (
	ContainerInProgress ContainerStatus = "in_progress"
	ContainerFinished   ContainerStatus = "finished"
	ContainerError      ContainerStatus = "error"
)

// RemoteContainer is the provider-side object created in the first publish phase.
// It only lives for the duration of one publish attempt.
type RemoteContainer struct {
	ID            string          `json:"id"`
	Status        ContainerStatus `json:"status"`
	StatusMessage string          `json:"status_message,omitempty"`
	Kind          MediaKind       `json:"kind"`
	Subtype       Subtype         `json:"subtype"`
}

// PublishResult is the outcome of one platform publisher invocation.
type PublishResult struct {
	Platform     Platform  `json:"platform" bson:"platform"`
	Success      bool      `json:"success" bson:"success"`
	RemoteID     string    `json:"remote_id" bson:"remote_id"`
	CanonicalURL string    `json:"canonical_url" bson:"canonical_url"`
	PublishedAt  time.Time `json:"published_at" bson:"published_at"`
}

// PlatformError records one platform's failure inside a job.
type PlatformError struct {
	Platform Platform `json:"platform" bson:"platform"`
	Tag      string   `json:"tag" bson:"tag"`
	Message  string   `json:"message" bson:"message"`
}

// JobEvent is broadcast whenever a job reaches a terminal state.
type JobEvent struct {
	Type     string                      `json:"type"`
	JobID    string                      `json:"job_id"`
	OwnerID  string                      `json:"owner_id"`
	State    JobState                    `json:"state"`
	Results  map[Platform]*PublishResult `json:"results,omitempty"`
	Errors   []PlatformError             `json:"errors,omitempty"`
	Occurred time.Time                   `json:"occurred_at"`
}
