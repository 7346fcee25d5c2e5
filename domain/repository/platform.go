package repository

import (
	"context"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

// IPlatformAPI is one provider's view of the three remote publish phases.
type IPlatformAPI interface {
	Platform() model.Platform
	SupportsSubtype(subtype model.Subtype) bool
	CreateContainer(ctx context.Context, req *dto.ContainerRequest) (string, error)
	ContainerStatus(ctx context.Context, accessToken, containerID string) (*model.RemoteContainer, error)
	PublishContainer(ctx context.Context, req *dto.PublishContainerRequest) (string, error)
	// CanonicalURL builds the public URL of a published object; it may call the
	// provider for a permalink and falls back to a path template.
	CanonicalURL(ctx context.Context, accessToken, accountID string, subtype model.Subtype, kind model.MediaKind, remoteID string) string
	ClassifyError(err error) apperror.Class
}

// IGraphReader performs the lightweight reads used to probe permissions.
type IGraphReader interface {
	ReadNode(ctx context.Context, accessToken, nodeID, fields string) error
	IsPermissionDenial(err error) bool
}

// ITokenRefresher performs one provider's refresh exchange.
type ITokenRefresher interface {
	Refresh(ctx context.Context, refreshSecret string) (*dto.TokenGrant, error)
}
