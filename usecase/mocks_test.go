package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

// Mock implementations

type MockCredentialRepo struct {
	mock.Mock
}

func (m *MockCredentialRepo) Upsert(ctx context.Context, c *model.Credential) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCredentialRepo) GetActive(ctx context.Context, ownerID string, provider model.Provider) (*model.Credential, error) {
	args := m.Called(ctx, ownerID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepo) Save(ctx context.Context, c *model.Credential) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCredentialRepo) Deactivate(ctx context.Context, ownerID string, provider model.Provider) error {
	return m.Called(ctx, ownerID, provider).Error(0)
}

type MockTokenRefresher struct {
	mock.Mock
}

func (m *MockTokenRefresher) Refresh(ctx context.Context, refreshSecret string) (*dto.TokenGrant, error) {
	args := m.Called(ctx, refreshSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenGrant), args.Error(1)
}

type MockPlatformAPI struct {
	mock.Mock
	platform model.Platform
	classify func(error) apperror.Class
}

func (m *MockPlatformAPI) Platform() model.Platform { return m.platform }

func (m *MockPlatformAPI) SupportsSubtype(subtype model.Subtype) bool {
	return m.Called(subtype).Bool(0)
}

func (m *MockPlatformAPI) CreateContainer(ctx context.Context, req *dto.ContainerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPlatformAPI) ContainerStatus(ctx context.Context, accessToken, containerID string) (*model.RemoteContainer, error) {
	args := m.Called(ctx, accessToken, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RemoteContainer), args.Error(1)
}

func (m *MockPlatformAPI) PublishContainer(ctx context.Context, req *dto.PublishContainerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPlatformAPI) CanonicalURL(ctx context.Context, accessToken, accountID string, subtype model.Subtype, kind model.MediaKind, remoteID string) string {
	return m.Called(ctx, accessToken, accountID, subtype, kind, remoteID).String(0)
}

func (m *MockPlatformAPI) ClassifyError(err error) apperror.Class {
	if m.classify != nil {
		return m.classify(err)
	}
	var c classifiedError
	if errors.As(err, &c) {
		return c.class
	}
	return apperror.ClassOther
}

// classifiedError lets tests pick the class a provider error falls into.
type classifiedError struct {
	class apperror.Class
	msg   string
}

func (e classifiedError) Error() string { return e.msg }

type MockGraphReader struct {
	mock.Mock
}

func (m *MockGraphReader) ReadNode(ctx context.Context, accessToken, nodeID, fields string) error {
	return m.Called(ctx, accessToken, nodeID, fields).Error(0)
}

func (m *MockGraphReader) IsPermissionDenial(err error) bool {
	var c classifiedError
	return errors.As(err, &c) && c.class == apperror.ClassPermission
}

type MockNormalizer struct {
	mock.Mock
}

// Normalize returns Get(0) as the URL, or applies it when it is a
// func(string) string. An empty kind falls back to the URL extension.
func (m *MockNormalizer) Normalize(ctx context.Context, mediaURL string, subtype model.Subtype) (string, model.MediaKind, error) {
	args := m.Called(ctx, mediaURL, subtype)
	var out string
	if fn, ok := args.Get(0).(func(string) string); ok {
		out = fn(mediaURL)
	} else {
		out = args.String(0)
	}
	kind, _ := args.Get(1).(model.MediaKind)
	if kind == "" && out != "" {
		kind = model.MediaKindImage
		if strings.HasSuffix(out, ".mp4") {
			kind = model.MediaKindVideo
		}
	}
	return out, kind, args.Error(2)
}

type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *model.PublishJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, id string) (*model.PublishJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishJob), args.Error(1)
}

func (m *MockJobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishJob, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishJob), args.Error(1)
}

func (m *MockJobRepo) Claim(ctx context.Context, id string, from []model.JobState) (bool, error) {
	args := m.Called(ctx, id, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepo) Complete(ctx context.Context, job *model.PublishJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobRepo) AppendMetadata(ctx context.Context, id string, tags []string, location *string) error {
	return m.Called(ctx, id, tags, location).Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJobEvent(ctx context.Context, evt *model.JobEvent) error {
	return m.Called(ctx, evt).Error(0)
}

// prefixVault is a reversible stand-in for the AES vault.
type prefixVault struct{}

func (prefixVault) Encrypt(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (prefixVault) Decrypt(envelope string) (string, error) {
	if !strings.HasPrefix(envelope, "sealed:") {
		return "", &apperror.CryptoError{Op: "decrypt", Err: errors.New("bad envelope")}
	}
	return strings.TrimPrefix(envelope, "sealed:"), nil
}

// memoryKV is an in-process IKeyValue that ignores ttl.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{data: map[string]string{}} }

func (s *memoryKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryKV) Take(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	delete(s.data, key)
	return v, ok, nil
}

func (s *memoryKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
