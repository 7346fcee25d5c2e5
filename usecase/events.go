package usecase

import (
	"context"
	"errors"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// EventFanout forwards each job event to every sink; one failing sink does
// not stop the rest.
type EventFanout []repository.IEventPublisher

func (f EventFanout) PublishJobEvent(ctx context.Context, evt *model.JobEvent) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.PublishJobEvent(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func jobEventType(state model.JobState) string { return "job." + string(state) }
