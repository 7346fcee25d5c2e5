package usecase

import (
	"context"
	"errors"
	"time"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// PublishRequest is one platform's share of a job.
type PublishRequest struct {
	Credential *model.Credential
	Media      []string
	Caption    string
	Subtype    model.Subtype
}

type IPlatformPublisher interface {
	Platform() model.Platform
	Supports(subtype model.Subtype) bool
	Publish(ctx context.Context, req *PublishRequest) (*model.PublishResult, error)
}

var errStillProcessing = errors.New("container still processing")

// platformPublisher drives CREATING_CONTAINER -> WAITING_PROCESSING -> PUBLISHING
// against one provider API.
type platformPublisher struct {
	api        repository.IPlatformAPI
	tokens     ITokenManager
	prober     IPermissionProber
	normalizer repository.IMediaNormalizer
	policies   Policies
	newTimer   TimerFactory
	now        func() time.Time
}

func NewPlatformPublisher(api repository.IPlatformAPI, tokens ITokenManager, prober IPermissionProber, normalizer repository.IMediaNormalizer, policies Policies, newTimer TimerFactory) IPlatformPublisher {
	if newTimer == nil {
		newTimer = NewRealTimer
	}
	return &platformPublisher{
		api:        api,
		tokens:     tokens,
		prober:     prober,
		normalizer: normalizer,
		policies:   policies,
		newTimer:   newTimer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *platformPublisher) Platform() model.Platform {
	return p.api.Platform()
}

func (p *platformPublisher) Supports(subtype model.Subtype) bool {
	return p.api.SupportsSubtype(subtype)
}

func (p *platformPublisher) Publish(ctx context.Context, req *PublishRequest) (*model.PublishResult, error) {
	platform := p.api.Platform()
	if !p.api.SupportsSubtype(req.Subtype) {
		return nil, &apperror.UnsupportedSubtypeError{Platform: platform, Subtype: req.Subtype}
	}
	lg := logger.GetLogger().WithField("platform", platform).WithField("subtype", req.Subtype)

	cred := req.Credential
	token, err := p.tokens.GetUsableAccessSecret(ctx, cred)
	if err != nil {
		return nil, err
	}
	accountID := cred.AccountID
	pageID := ""
	if cred.PageID != nil {
		pageID = *cred.PageID
	}

	if p.prober != nil {
		if res := p.prober.Probe(ctx, token, accountID, pageID); res.Permission == PermissionDenied {
			return nil, &apperror.PermissionDeniedError{Platform: platform, Detail: res.Detail}
		}
	}

	items := make([]dto.MediaItem, 0, len(req.Media))
	for _, m := range req.Media {
		normalized, kind, err := p.normalizer.Normalize(ctx, m, req.Subtype)
		if err != nil {
			if errors.Is(err, repository.ErrMediaUnfetchable) {
				return nil, &apperror.MediaUnfetchableError{Platform: platform, MediaURL: m, Detail: err.Error()}
			}
			lg.WithField("error", err).WithField("media", m).Error("media normalization failed")
			return nil, &apperror.ContainerCreationError{Platform: platform, Err: err}
		}
		items = append(items, dto.MediaItem{URL: normalized, Kind: kind})
	}
	if len(items) == 0 {
		return nil, &apperror.ContainerCreationError{Platform: platform, Err: errors.New("no media")}
	}
	kind := items[0].Kind

	containerID, err := p.api.CreateContainer(ctx, &dto.ContainerRequest{
		AccessToken: token,
		AccountID:   accountID,
		PageID:      pageID,
		Media:       items,
		Kind:        kind,
		Subtype:     req.Subtype,
		Caption:     req.Caption,
	})
	if err != nil {
		lg.WithField("error", err).Warn("container creation failed")
		return nil, p.classify(err, items[0].URL, req.Subtype, func(err error) error {
			return &apperror.ContainerCreationError{Platform: platform, Err: err}
		})
	}
	lg = lg.WithField("container_id", containerID)
	lg.Info("container created")

	if kind == model.MediaKindVideo || req.Subtype == model.SubtypeStory {
		policy := p.policies.VideoPoll
		if req.Subtype == model.SubtypeStory {
			policy = p.policies.StoryPoll
		}
		if err := p.waitForContainer(ctx, lg, policy, token, containerID); err != nil {
			return nil, err
		}
	}

	remoteID, err := p.publishContainer(ctx, lg, &dto.PublishContainerRequest{
		AccessToken: token,
		AccountID:   accountID,
		PageID:      pageID,
		ContainerID: containerID,
		Kind:        kind,
		Subtype:     req.Subtype,
		Caption:     req.Caption,
	}, items[0].URL)
	if err != nil {
		return nil, err
	}

	result := &model.PublishResult{
		Platform:     platform,
		Success:      true,
		RemoteID:     remoteID,
		CanonicalURL: p.api.CanonicalURL(ctx, token, accountID, req.Subtype, kind, remoteID),
		PublishedAt:  p.now(),
	}
	lg.WithField("remote_id", remoteID).WithField("url", result.CanonicalURL).Info("published")
	return result, nil
}

// waitForContainer polls until the container finishes. The policy's
// MaxAttempts counts every status check, the last one made one interval after
// the poll loop gives up.
func (p *platformPublisher) waitForContainer(ctx context.Context, lg *logrus.Entry, policy RetryPolicy, token, containerID string) error {
	platform := p.api.Platform()
	check := func() error {
		st, err := p.api.ContainerStatus(ctx, token, containerID)
		if err != nil {
			if p.api.ClassifyError(err) == apperror.ClassPermission {
				return backoff.Permanent(&apperror.PermissionDeniedError{Platform: platform, Detail: err.Error()})
			}
			return err
		}
		switch st.Status {
		case model.ContainerFinished:
			return nil
		case model.ContainerError:
			return backoff.Permanent(&apperror.MediaProcessingError{Platform: platform, ContainerID: containerID, Detail: st.StatusMessage})
		}
		return errStillProcessing
	}

	budget := policy.MaxAttempts
	if budget < 1 {
		budget = 1
	}
	wait := policy.Interval
	if budget > 1 {
		loop := policy
		loop.MaxAttempts = budget - 1
		err := loop.Run(ctx, p.newTimer, func(int) error { return check() }, func(err error, next time.Duration) {
			lg.WithField("error", err).WithField("next", next).Debug("container not ready")
		})
		if err == nil {
			return nil
		}
		if done, final := terminal(ctx, err); done {
			return final
		}
	} else {
		wait = policy.Warmup
	}

	if wait > 0 {
		if err := sleep(ctx, p.newTimer(), wait); err != nil {
			return err
		}
	}
	err := check()
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if done, final := terminal(ctx, err); done {
		return final
	}
	lg.WithField("attempts", budget).Warn("container processing timed out")
	return &apperror.MediaProcessingTimeoutError{Platform: platform, ContainerID: containerID, Attempts: budget}
}

// publishContainer retries only "media not ready" rejections.
func (p *platformPublisher) publishContainer(ctx context.Context, lg *logrus.Entry, req *dto.PublishContainerRequest, mediaURL string) (string, error) {
	platform := p.api.Platform()
	var remoteID string
	policy := p.policies.PublishRetry
	err := policy.Run(ctx, p.newTimer, func(attempt int) error {
		id, err := p.api.PublishContainer(ctx, req)
		if err == nil {
			remoteID = id
			return nil
		}
		if p.api.ClassifyError(err) == apperror.ClassNotReady {
			return err
		}
		return backoff.Permanent(p.classify(err, mediaURL, req.Subtype, func(err error) error {
			return &apperror.PublishError{Platform: platform, Err: err}
		}))
	}, func(err error, next time.Duration) {
		lg.WithField("error", err).WithField("next", next).Info("media not ready, retrying publish")
	})
	if err == nil {
		return remoteID, nil
	}
	if done, final := terminal(ctx, err); done {
		return "", final
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return "", &apperror.MediaNotReadyRetryExhaustedError{Platform: platform, ContainerID: req.ContainerID, Attempts: attempts, Err: err}
}

// classify maps a provider error to the pipeline taxonomy; fallback wraps
// anything without a more specific class.
func (p *platformPublisher) classify(err error, mediaURL string, subtype model.Subtype, fallback func(error) error) error {
	var tagged apperror.Tagged
	if errors.As(err, &tagged) {
		return err
	}
	platform := p.api.Platform()
	switch p.api.ClassifyError(err) {
	case apperror.ClassPermission:
		return &apperror.PermissionDeniedError{Platform: platform, Detail: err.Error()}
	case apperror.ClassAspectRatio:
		return &apperror.AspectRatioError{Platform: platform, MediaURL: mediaURL, Subtype: subtype, Detail: err.Error()}
	case apperror.ClassUnfetchable:
		return &apperror.MediaUnfetchableError{Platform: platform, MediaURL: mediaURL, Detail: err.Error()}
	}
	return fallback(err)
}

// terminal reports whether err already ends the state machine: a tagged
// pipeline error or a cancelled context.
func terminal(ctx context.Context, err error) (bool, error) {
	var tagged apperror.Tagged
	if errors.As(err, &tagged) {
		return true, err
	}
	if ctx.Err() != nil {
		return true, ctx.Err()
	}
	return false, nil
}
