package repository

import (
	"context"
	"errors"
	"io"

	"social-publisher/domain/model"
)

// IBlobStore stores a new asset and returns its public HTTPS URL.
type IBlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// IMediaFetcher downloads a publicly reachable asset.
type IMediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) (io.ReadCloser, string, error)
}

// ErrMediaUnfetchable marks normalizer failures caused by the source asset:
// it could not be downloaded or is not a readable image.
var ErrMediaUnfetchable = errors.New("media unfetchable")

// IMediaNormalizer returns the URL to publish and the kind it resolved, from
// the URL extension or the served content type.
type IMediaNormalizer interface {
	Normalize(ctx context.Context, mediaURL string, subtype model.Subtype) (string, model.MediaKind, error)
}
