package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const (
	minCarouselItems = 2
	maxCarouselItems = 10
)

type IPublishJobUsecase interface {
	Create(ctx context.Context, ownerID string, req *dto.CreatePublishJobRequest) (*model.PublishJob, error)
	Get(ctx context.Context, ownerID, id string) (*model.PublishJob, error)
	PublishNow(ctx context.Context, ownerID, id string) (*dto.PublishOutcome, error)
	AppendMetadata(ctx context.Context, ownerID, id string, req *dto.AppendMetadataRequest) error
}

type PublishJobUsecase struct {
	jobs         repository.IPublishJob
	orchestrator IPublishOrchestrator
	jobTimeout   time.Duration
	maxCaption   int
	now          func() time.Time
}

func NewPublishJobUsecase(jobs repository.IPublishJob, orchestrator IPublishOrchestrator, jobTimeout time.Duration, maxCaption int) IPublishJobUsecase {
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	if maxCaption <= 0 {
		maxCaption = defaultMaxCaptionRunes
	}
	return &PublishJobUsecase{
		jobs:         jobs,
		orchestrator: orchestrator,
		jobTimeout:   jobTimeout,
		maxCaption:   maxCaption,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (u *PublishJobUsecase) Create(ctx context.Context, ownerID string, req *dto.CreatePublishJobRequest) (*model.PublishJob, error) {
	if err := validateCreateRequest(req, u.maxCaption); err != nil {
		return nil, err
	}
	now := u.now()
	job := &model.PublishJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Platforms: req.Platforms,
		Media:     req.Media,
		Caption:   req.Caption,
		Hashtags:  req.Hashtags,
		Subtype:   req.Subtype,
		State:     model.JobStateScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch {
	case req.Draft:
		job.State = model.JobStateDraft
		job.ScheduledAt = req.ScheduledAt
	case req.ScheduledAt != nil:
		at := req.ScheduledAt.UTC()
		job.ScheduledAt = &at
	default:
		job.ScheduledAt = &now
	}

	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create publish job: %w", err)
	}
	logger.GetLogger().WithField("job_id", job.ID).WithField("owner_id", ownerID).WithField("state", job.State).Info("publish job created")
	return job, nil
}

func (u *PublishJobUsecase) Get(ctx context.Context, ownerID, id string) (*model.PublishJob, error) {
	job, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerID != ownerID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (u *PublishJobUsecase) PublishNow(ctx context.Context, ownerID, id string) (*dto.PublishOutcome, error) {
	job, err := u.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !isClaimable(job.State) {
		return nil, ErrJobNotClaimable
	}
	ctx, cancel := context.WithTimeout(ctx, u.jobTimeout)
	defer cancel()
	return u.orchestrator.Execute(ctx, job)
}

// AppendMetadata adds tags and sets the location. It is allowed after publishing.
func (u *PublishJobUsecase) AppendMetadata(ctx context.Context, ownerID, id string, req *dto.AppendMetadataRequest) error {
	if _, err := u.Get(ctx, ownerID, id); err != nil {
		return err
	}
	var tags []string
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 && req.Location == nil {
		return validation.Errors{"tags": errors.New("tags or location is required")}
	}
	return u.jobs.AppendMetadata(ctx, id, tags, req.Location)
}

func validateCreateRequest(req *dto.CreatePublishJobRequest, maxCaption int) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Platforms, validation.Required, validation.Length(1, 2),
			validation.Each(validation.In(model.PlatformInstagram, model.PlatformFacebook)),
			validation.By(uniquePlatforms)),
		validation.Field(&req.Subtype, validation.Required,
			validation.In(model.SubtypePost, model.SubtypeStory, model.SubtypeReel, model.SubtypeCarousel)),
		validation.Field(&req.Media, validation.Required,
			validation.Each(validation.Required, validation.By(httpsURL)),
			validation.By(mediaCount(req.Subtype))),
		validation.Field(&req.Caption, validation.RuneLength(0, maxCaption)),
		validation.Field(&req.Hashtags, validation.Length(0, 100)),
	)
}

func uniquePlatforms(value interface{}) error {
	platforms, _ := value.([]model.Platform)
	seen := map[model.Platform]bool{}
	for _, p := range platforms {
		if seen[p] {
			return fmt.Errorf("platform %s listed twice", p)
		}
		seen[p] = true
	}
	return nil
}

func httpsURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return errors.New("must be an https URL")
	}
	return nil
}

func mediaCount(subtype model.Subtype) validation.RuleFunc {
	return func(value interface{}) error {
		media, _ := value.([]string)
		if subtype == model.SubtypeCarousel {
			if len(media) < minCarouselItems || len(media) > maxCarouselItems {
				return fmt.Errorf("a carousel needs %d to %d items", minCarouselItems, maxCarouselItems)
			}
			return nil
		}
		if len(media) > 1 {
			return fmt.Errorf("%s takes a single media item", subtype)
		}
		return nil
	}
}
