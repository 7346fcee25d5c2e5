package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

func validRequest() *dto.CreatePublishJobRequest {
	return &dto.CreatePublishJobRequest{
		Platforms: []model.Platform{model.PlatformInstagram, model.PlatformFacebook},
		Media:     []string{"https://cdn.example.com/a.jpg"},
		Caption:   "hello",
		Subtype:   model.SubtypePost,
	}
}

func TestValidateCreateRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *dto.CreatePublishJobRequest)
		field  string
	}{
		{"valid", func(r *dto.CreatePublishJobRequest) {}, ""},
		{"no platforms", func(r *dto.CreatePublishJobRequest) { r.Platforms = nil }, "platforms"},
		{"unknown platform", func(r *dto.CreatePublishJobRequest) { r.Platforms = []model.Platform{"tiktok"} }, "platforms"},
		{"duplicate platform", func(r *dto.CreatePublishJobRequest) {
			r.Platforms = []model.Platform{model.PlatformFacebook, model.PlatformFacebook}
		}, "platforms"},
		{"http media", func(r *dto.CreatePublishJobRequest) { r.Media = []string{"http://cdn.example.com/a.jpg"} }, "media"},
		{"local path", func(r *dto.CreatePublishJobRequest) { r.Media = []string{"/tmp/a.jpg"} }, "media"},
		{"bad subtype", func(r *dto.CreatePublishJobRequest) { r.Subtype = "live" }, "subtype"},
		{"carousel too small", func(r *dto.CreatePublishJobRequest) { r.Subtype = model.SubtypeCarousel }, "media"},
		{"post with many items", func(r *dto.CreatePublishJobRequest) {
			r.Media = []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}
		}, "media"},
		{"caption too long", func(r *dto.CreatePublishJobRequest) { r.Caption = string(make([]rune, 2201)) }, "caption"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := validateCreateRequest(req, 2200)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs, tt.field)
		})
	}
}

func TestPublishJobCreate(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	later := now.Add(2 * time.Hour)

	tests := []struct {
		name      string
		draft     bool
		scheduled *time.Time
		state     model.JobState
		at        *time.Time
	}{
		{"immediate", false, nil, model.JobStateScheduled, &now},
		{"scheduled", false, &later, model.JobStateScheduled, &later},
		{"draft", true, nil, model.JobStateDraft, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := new(MockJobRepo)
			jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
			uc := NewPublishJobUsecase(jobs, new(MockOrchestrator), 0, 0).(*PublishJobUsecase)
			uc.now = func() time.Time { return now }

			req := validRequest()
			req.Draft = tt.draft
			req.ScheduledAt = tt.scheduled
			job, err := uc.Create(context.Background(), "u-1", req)

			require.NoError(t, err)
			assert.NotEmpty(t, job.ID)
			assert.Equal(t, "u-1", job.OwnerID)
			assert.Equal(t, tt.state, job.State)
			assert.Equal(t, tt.at, job.ScheduledAt)
		})
	}
}

func TestPublishJobCreate_InvalidNotStored(t *testing.T) {
	jobs := new(MockJobRepo)
	req := validRequest()
	req.Media = nil

	_, err := NewPublishJobUsecase(jobs, new(MockOrchestrator), 0, 0).Create(context.Background(), "u-1", req)

	require.Error(t, err)
	jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPublishJobGet_OtherOwner(t *testing.T) {
	jobs := new(MockJobRepo)
	jobs.On("GetByID", mock.Anything, "j1").Return(&model.PublishJob{ID: "j1", OwnerID: "someone-else"}, nil)
	jobs.On("GetByID", mock.Anything, "missing").Return(nil, nil)
	uc := NewPublishJobUsecase(jobs, new(MockOrchestrator), 0, 0)

	_, err := uc.Get(context.Background(), "u-1", "j1")
	require.ErrorIs(t, err, ErrJobNotFound)
	_, err = uc.Get(context.Background(), "u-1", "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestPublishNow(t *testing.T) {
	jobs := new(MockJobRepo)
	orch := new(MockOrchestrator)
	job := &model.PublishJob{ID: "j1", OwnerID: "u-1", State: model.JobStateDraft}
	jobs.On("GetByID", mock.Anything, "j1").Return(job, nil)
	orch.On("Execute", mock.Anything, job).Return(&dto.PublishOutcome{JobID: "j1", State: model.JobStatePublished}, nil)

	out, err := NewPublishJobUsecase(jobs, orch, time.Minute, 0).PublishNow(context.Background(), "u-1", "j1")

	require.NoError(t, err)
	assert.Equal(t, model.JobStatePublished, out.State)
}

func TestPublishNow_FinalStates(t *testing.T) {
	for _, state := range []model.JobState{model.JobStatePublished, model.JobStateFailed, model.JobStatePending} {
		t.Run(string(state), func(t *testing.T) {
			jobs := new(MockJobRepo)
			orch := new(MockOrchestrator)
			jobs.On("GetByID", mock.Anything, "j1").Return(&model.PublishJob{ID: "j1", OwnerID: "u-1", State: state}, nil)

			_, err := NewPublishJobUsecase(jobs, orch, 0, 0).PublishNow(context.Background(), "u-1", "j1")

			require.ErrorIs(t, err, ErrJobNotClaimable)
			orch.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestAppendMetadata(t *testing.T) {
	jobs := new(MockJobRepo)
	jobs.On("GetByID", mock.Anything, "j1").Return(&model.PublishJob{ID: "j1", OwnerID: "u-1", State: model.JobStatePublished}, nil)
	loc := "Lisbon"
	jobs.On("AppendMetadata", mock.Anything, "j1", []string{"brand"}, &loc).Return(nil)
	uc := NewPublishJobUsecase(jobs, new(MockOrchestrator), 0, 0)

	require.NoError(t, uc.AppendMetadata(context.Background(), "u-1", "j1", &dto.AppendMetadataRequest{Tags: []string{" brand ", ""}, Location: &loc}))

	err := uc.AppendMetadata(context.Background(), "u-1", "j1", &dto.AppendMetadataRequest{})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
}
