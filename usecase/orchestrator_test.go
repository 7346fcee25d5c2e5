package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"social-publisher/domain/apperror"
	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlatformPublisher struct {
	mock.Mock
	platform model.Platform
	supports map[model.Subtype]bool
}

func (m *MockPlatformPublisher) Platform() model.Platform { return m.platform }

func (m *MockPlatformPublisher) Supports(subtype model.Subtype) bool {
	return m.supports[subtype]
}

func (m *MockPlatformPublisher) Publish(ctx context.Context, req *PublishRequest) (*model.PublishResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

type recordingMetrics struct {
	platform map[string]string
	jobs     []string
}

func (r *recordingMetrics) ObservePlatformResult(platform, outcome string) {
	if r.platform == nil {
		r.platform = map[string]string{}
	}
	r.platform[platform] = outcome
}

func (r *recordingMetrics) ObserveJob(state string, _ time.Duration) {
	r.jobs = append(r.jobs, state)
}

func (r *recordingMetrics) ObserveTokenRefresh(string, bool) {}

var allSubtypes = map[model.Subtype]bool{model.SubtypePost: true, model.SubtypeStory: true, model.SubtypeReel: true, model.SubtypeCarousel: true}

type orchestratorFixture struct {
	ig, fb  *MockPlatformPublisher
	creds   *MockCredentialRepo
	jobs    *MockJobRepo
	events  *MockEventPublisher
	metrics *recordingMetrics
	orch    IPublishOrchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		ig:      &MockPlatformPublisher{platform: model.PlatformInstagram, supports: allSubtypes},
		fb:      &MockPlatformPublisher{platform: model.PlatformFacebook, supports: map[model.Subtype]bool{model.SubtypePost: true}},
		creds:   new(MockCredentialRepo),
		jobs:    new(MockJobRepo),
		events:  new(MockEventPublisher),
		metrics: &recordingMetrics{},
	}
	f.orch = NewPublishOrchestrator([]IPlatformPublisher{f.ig, f.fb}, f.creds, f.jobs, f.events, f.metrics, CaptionLimits{})
	return f
}

func igCredential() *model.Credential {
	return &model.Credential{ID: 1, OwnerID: "u-1", Provider: model.ProviderInstagramGraph, AccountID: "ig-1", AccessSecret: "sealed:a"}
}

func fbCredential() *model.Credential {
	return &model.Credential{ID: 2, OwnerID: "u-1", Provider: model.ProviderFacebookGraph, AccountID: "page-1", PageID: strPtr("page-1"), AccessSecret: "sealed:b"}
}

func newJob(subtype model.Subtype, platforms ...model.Platform) *model.PublishJob {
	return &model.PublishJob{
		ID:        "job-1",
		OwnerID:   "u-1",
		Platforms: platforms,
		Media:     []string{"https://cdn.example.com/a.jpg"},
		Caption:   "Launch day",
		Hashtags:  []string{"Launch"},
		Subtype:   subtype,
		State:     model.JobStateScheduled,
	}
}

func TestOrchestratorPublish_BothSucceed(t *testing.T) {
	f := newOrchestratorFixture()
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(igCredential(), nil)
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderFacebookGraph).Return(fbCredential(), nil)
	f.ig.On("Publish", mock.Anything, mock.MatchedBy(func(r *PublishRequest) bool {
		return r.Caption == "Launch day\n\n#launch" && r.Credential.ID == 1
	})).Return(&model.PublishResult{Platform: model.PlatformInstagram, Success: true, RemoteID: "ig-m"}, nil)
	f.fb.On("Publish", mock.Anything, mock.Anything).Return(&model.PublishResult{Platform: model.PlatformFacebook, Success: true, RemoteID: "fb-m"}, nil)

	out := f.orch.Publish(context.Background(), newJob(model.SubtypePost, model.PlatformInstagram, model.PlatformFacebook))

	assert.Equal(t, model.JobStatePublished, out.State)
	assert.Len(t, out.Results, 2)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "success", f.metrics.platform["facebook"])
}

func TestOrchestratorPublish_PartialSuccess(t *testing.T) {
	f := newOrchestratorFixture()
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(igCredential(), nil)
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderFacebookGraph).Return(fbCredential(), nil)
	f.ig.On("Publish", mock.Anything, mock.Anything).Return(&model.PublishResult{Platform: model.PlatformInstagram, Success: true}, nil)
	f.fb.On("Publish", mock.Anything, mock.Anything).Return(nil, &apperror.PermissionDeniedError{Platform: model.PlatformFacebook, Detail: "code 10"})

	out := f.orch.Publish(context.Background(), newJob(model.SubtypePost, model.PlatformInstagram, model.PlatformFacebook))

	assert.Equal(t, model.JobStatePublished, out.State)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, model.PlatformFacebook, out.Errors[0].Platform)
	assert.Equal(t, apperror.TagPermissionDenied, out.Errors[0].Tag)
	assert.Contains(t, out.Results, model.PlatformInstagram)
}

func TestOrchestratorPublish_AllFailed(t *testing.T) {
	f := newOrchestratorFixture()
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(nil, nil)

	out := f.orch.Publish(context.Background(), newJob(model.SubtypePost, model.PlatformInstagram))

	assert.Equal(t, model.JobStateFailed, out.State)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, apperror.TagCredentialMissing, out.Errors[0].Tag)
	f.ig.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrchestratorPublish_IncompleteCredential(t *testing.T) {
	f := newOrchestratorFixture()
	cred := fbCredential()
	cred.PageID = nil
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderFacebookGraph).Return(cred, nil)

	out := f.orch.Publish(context.Background(), newJob(model.SubtypePost, model.PlatformFacebook))

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "page_id")
}

func TestOrchestratorPublish_ReelToBothWithInstagramOnly(t *testing.T) {
	f := newOrchestratorFixture()
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(igCredential(), nil)
	f.ig.On("Publish", mock.Anything, mock.Anything).Return(&model.PublishResult{Platform: model.PlatformInstagram, Success: true, RemoteID: "r-1"}, nil)

	job := newJob(model.SubtypeReel, model.PlatformInstagram, model.PlatformFacebook)
	job.Media = []string{"https://cdn.example.com/clip.mp4"}
	out := f.orch.Publish(context.Background(), job)

	assert.Equal(t, model.JobStatePublished, out.State)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, model.PlatformFacebook, out.Errors[0].Platform)
	assert.Equal(t, apperror.TagUnsupportedSubtype, out.Errors[0].Tag)
	assert.Contains(t, out.Errors[0].Message, "platform does not support")
	f.creds.AssertNotCalled(t, "GetActive", mock.Anything, "u-1", model.ProviderFacebookGraph)
}

func TestOrchestratorExecute(t *testing.T) {
	f := newOrchestratorFixture()
	job := newJob(model.SubtypePost, model.PlatformInstagram)
	f.jobs.On("Claim", mock.Anything, "job-1", claimableStates).Return(true, nil)
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(igCredential(), nil)
	f.ig.On("Publish", mock.Anything, mock.Anything).Return(&model.PublishResult{Platform: model.PlatformInstagram, Success: true}, nil)
	f.jobs.On("Complete", mock.Anything, mock.MatchedBy(func(j *model.PublishJob) bool {
		return j.State == model.JobStatePublished && j.PublishedAt != nil
	})).Return(nil)
	f.events.On("PublishJobEvent", mock.Anything, mock.MatchedBy(func(e *model.JobEvent) bool {
		return e.Type == "job.published" && e.OwnerID == "u-1"
	})).Return(errors.New("broker down"))

	out, err := f.orch.Execute(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, model.JobStatePublished, out.State)
	assert.Equal(t, []string{"published"}, f.metrics.jobs)
	f.jobs.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestOrchestratorExecute_NotClaimable(t *testing.T) {
	f := newOrchestratorFixture()
	f.jobs.On("Claim", mock.Anything, "job-1", claimableStates).Return(false, nil)

	_, err := f.orch.Execute(context.Background(), newJob(model.SubtypePost, model.PlatformInstagram))

	require.ErrorIs(t, err, ErrJobNotClaimable)
	f.jobs.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestratorExecute_FailedJobIsFinal(t *testing.T) {
	f := newOrchestratorFixture()
	job := newJob(model.SubtypePost, model.PlatformInstagram)
	job.State = model.JobStateFailed
	f.jobs.On("Claim", mock.Anything, "job-1", mock.MatchedBy(func(from []model.JobState) bool {
		return !slices.Contains(from, model.JobStateFailed) && !slices.Contains(from, model.JobStatePublished)
	})).Return(false, nil)

	_, err := f.orch.Execute(context.Background(), job)

	require.ErrorIs(t, err, ErrJobNotClaimable)
	assert.Equal(t, model.JobStateFailed, job.State)
	f.jobs.AssertExpectations(t)
	f.jobs.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestratorExecute_CompleteFails(t *testing.T) {
	f := newOrchestratorFixture()
	f.jobs.On("Claim", mock.Anything, "job-1", claimableStates).Return(true, nil)
	f.creds.On("GetActive", mock.Anything, "u-1", model.ProviderInstagramGraph).Return(nil, errors.New("db down"))
	f.jobs.On("Complete", mock.Anything, mock.Anything).Return(errors.New("mongo down"))

	out, err := f.orch.Execute(context.Background(), newJob(model.SubtypePost, model.PlatformInstagram))

	require.Error(t, err)
	assert.Equal(t, model.JobStateFailed, out.State)
	f.events.AssertNotCalled(t, "PublishJobEvent", mock.Anything, mock.Anything)
}

func TestEventFanout(t *testing.T) {
	a, b := new(MockEventPublisher), new(MockEventPublisher)
	a.On("PublishJobEvent", mock.Anything, mock.Anything).Return(errors.New("a failed"))
	b.On("PublishJobEvent", mock.Anything, mock.Anything).Return(nil)

	err := EventFanout{a, nil, b}.PublishJobEvent(context.Background(), &model.JobEvent{JobID: "j"})

	require.ErrorContains(t, err, "a failed")
	b.AssertNumberOfCalls(t, "PublishJobEvent", 1)
}
