package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

var (
	ErrJobNotFound     = errors.New("publish job not found")
	ErrJobNotClaimable = errors.New("publish job is not in a publishable state")
)

// claimableStates are the states a job may be run from. Published and failed
// jobs are final.
var claimableStates = []model.JobState{model.JobStateDraft, model.JobStateScheduled}

func isClaimable(state model.JobState) bool {
	for _, s := range claimableStates {
		if s == state {
			return true
		}
	}
	return false
}

const persistTimeout = 10 * time.Second

type IPublishOrchestrator interface {
	// Publish runs every target platform of job and merges the outcomes. It
	// never fails as a whole; per-platform failures land in Errors.
	Publish(ctx context.Context, job *model.PublishJob) *dto.PublishOutcome
	// Execute claims job, publishes it, stores the outcome and announces it.
	Execute(ctx context.Context, job *model.PublishJob) (*dto.PublishOutcome, error)
}

type CaptionLimits struct {
	MaxHashtags int
	MaxRunes    int
}

type publishOrchestrator struct {
	publishers map[model.Platform]IPlatformPublisher
	creds      repository.ICredential
	jobs       repository.IPublishJob
	events     repository.IEventPublisher
	metrics    IPublishMetrics
	limits     CaptionLimits
	now        func() time.Time
}

func NewPublishOrchestrator(publishers []IPlatformPublisher, creds repository.ICredential, jobs repository.IPublishJob, events repository.IEventPublisher, metrics IPublishMetrics, limits CaptionLimits) IPublishOrchestrator {
	byPlatform := make(map[model.Platform]IPlatformPublisher, len(publishers))
	for _, p := range publishers {
		byPlatform[p.Platform()] = p
	}
	return &publishOrchestrator{
		publishers: byPlatform,
		creds:      creds,
		jobs:       jobs,
		events:     events,
		metrics:    metricsOrNoop(metrics),
		limits:     limits,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type platformSlot struct {
	result *model.PublishResult
	err    error
}

func (o *publishOrchestrator) Publish(ctx context.Context, job *model.PublishJob) *dto.PublishOutcome {
	caption := ComposeCaption(job.Caption, job.Hashtags, o.limits.MaxHashtags, o.limits.MaxRunes)
	slots := make([]platformSlot, len(job.Platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range job.Platforms {
		i, platform := i, platform
		g.Go(func() error {
			res, err := o.publishTo(gctx, job, platform, caption)
			slots[i] = platformSlot{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	outcome := &dto.PublishOutcome{JobID: job.ID, Results: map[model.Platform]*model.PublishResult{}}
	for i, platform := range job.Platforms {
		slot := slots[i]
		if slot.err != nil {
			tag := apperror.TagOf(slot.err)
			outcome.Errors = append(outcome.Errors, model.PlatformError{Platform: platform, Tag: tag, Message: slot.err.Error()})
			o.metrics.ObservePlatformResult(string(platform), tag)
			continue
		}
		outcome.Results[platform] = slot.result
		o.metrics.ObservePlatformResult(string(platform), "success")
	}

	outcome.State = model.JobStatePublished
	if len(outcome.Results) == 0 {
		outcome.State = model.JobStateFailed
	}
	return outcome
}

func (o *publishOrchestrator) publishTo(ctx context.Context, job *model.PublishJob, platform model.Platform, caption string) (*model.PublishResult, error) {
	lg := logger.GetLogger().WithField("job_id", job.ID).WithField("platform", platform)
	pub, ok := o.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for %s", platform)
	}
	if !pub.Supports(job.Subtype) {
		return nil, &apperror.UnsupportedSubtypeError{Platform: platform, Subtype: job.Subtype}
	}

	cred, err := o.creds.GetActive(ctx, job.OwnerID, platform.Provider())
	if err != nil {
		return nil, fmt.Errorf("load %s credential: %w", platform, err)
	}
	if cred == nil {
		return nil, &apperror.CredentialMissingError{Platform: platform}
	}
	if missing := cred.MissingFields(); len(missing) > 0 {
		return nil, &apperror.CredentialMissingError{Platform: platform, Fields: missing}
	}

	res, err := pub.Publish(ctx, &PublishRequest{Credential: cred, Media: job.Media, Caption: caption, Subtype: job.Subtype})
	if err != nil {
		lg.WithField("error", err).WithField("tag", apperror.TagOf(err)).Error("platform publish failed")
		return nil, err
	}
	return res, nil
}

func (o *publishOrchestrator) Execute(ctx context.Context, job *model.PublishJob) (*dto.PublishOutcome, error) {
	lg := logger.GetLogger().WithField("job_id", job.ID)
	start := o.now()

	claimed, err := o.jobs.Claim(ctx, job.ID, claimableStates)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	if !claimed {
		return nil, ErrJobNotClaimable
	}
	job.State = model.JobStatePending

	outcome := o.Publish(ctx, job)

	job.State = outcome.State
	job.Results = outcome.Results
	job.Errors = outcome.Errors
	if outcome.State == model.JobStatePublished {
		at := o.now()
		job.PublishedAt = &at
	}

	// the outcome is stored even when ctx ran out during publishing
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.jobs.Complete(persistCtx, job); err != nil {
		lg.WithField("error", err).Error("storing job outcome failed")
		return outcome, fmt.Errorf("complete job %s: %w", job.ID, err)
	}

	if o.events != nil {
		evt := &model.JobEvent{
			Type:     jobEventType(job.State),
			JobID:    job.ID,
			OwnerID:  job.OwnerID,
			State:    job.State,
			Results:  job.Results,
			Errors:   job.Errors,
			Occurred: o.now(),
		}
		if err := o.events.PublishJobEvent(persistCtx, evt); err != nil {
			lg.WithField("error", err).Warn("job event not delivered")
		}
	}

	o.metrics.ObserveJob(string(job.State), o.now().Sub(start))
	lg.WithField("state", job.State).WithField("failed_platforms", len(job.Errors)).Info("job finished")
	return outcome, nil
}
