package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

type IPublishJob interface {
	Create(ctx context.Context, job *model.PublishJob) error
	// GetByID returns nil, nil when the job does not exist.
	GetByID(ctx context.Context, id string) (*model.PublishJob, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishJob, error)
	// Claim moves the job to pending if it is currently in one of from. It reports
	// false when another worker got there first.
	Claim(ctx context.Context, id string, from []model.JobState) (bool, error)
	Complete(ctx context.Context, job *model.PublishJob) error
	AppendMetadata(ctx context.Context, id string, tags []string, location *string) error
}

// IEventPublisher fans job outcomes out to whoever listens (broker, SSE, ...).
type IEventPublisher interface {
	PublishJobEvent(ctx context.Context, evt *model.JobEvent) error
}
