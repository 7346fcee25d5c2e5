package apperror

import (
	"errors"
	"fmt"
	"strings"

	"social-publisher/domain/model"
)

// Class is the coarse classification of a provider error.
type Class int

const (
	ClassOther Class = iota
	ClassPermission
	ClassAspectRatio
	ClassUnfetchable
	ClassNotReady
)

func (c Class) String() string {
	switch c {
	case ClassPermission:
		return "permission"
	case ClassAspectRatio:
		return "aspect_ratio"
	case ClassUnfetchable:
		return "unfetchable"
	case ClassNotReady:
		return "not_ready"
	}
	return "other"
}

const (
	TagCrypto                = "crypto"
	TagCredentialExpired     = "credential_expired"
	TagRefreshFailed         = "refresh_failed"
	TagCredentialMissing     = "credential_missing"
	TagPermissionDenied      = "permission_denied"
	TagAspectRatio           = "aspect_ratio"
	TagMediaUnfetchable      = "media_unfetchable"
	TagMediaProcessing       = "media_processing"
	TagMediaProcessingTimout = "media_processing_timeout"
	TagMediaNotReady         = "media_not_ready_retry_exhausted"
	TagContainerCreation     = "container_creation"
	TagPublish               = "publish"
	TagUnsupportedSubtype    = "unsupported_subtype"
	TagUnknown               = "unknown"
)

// Tagged is implemented by every pipeline error. The tag is what gets persisted
// on a job's per-platform error entry.
type Tagged interface {
	error
	Tag() string
}

// TagOf returns the classification tag of err, or TagUnknown.
func TagOf(err error) string {
	var t Tagged
	if errors.As(err, &t) {
		return t.Tag()
	}
	return TagUnknown
}

type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("vault %s: %v", e.Op, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }
func (e *CryptoError) Tag() string   { return TagCrypto }

type CredentialExpiredError struct {
	Provider     model.Provider
	CredentialID int64
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("%s credential %d expired and has no refresh secret", e.Provider, e.CredentialID)
}
func (e *CredentialExpiredError) Tag() string { return TagCredentialExpired }

type RefreshFailedError struct {
	Provider model.Provider
	Err      error
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Provider, e.Err)
}
func (e *RefreshFailedError) Unwrap() error { return e.Err }
func (e *RefreshFailedError) Tag() string   { return TagRefreshFailed }

// CredentialMissingError means no usable credential exists for a platform. Fields is
// empty when there is no credential at all.
type CredentialMissingError struct {
	Platform model.Platform
	Fields   []string
}

func (e *CredentialMissingError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("no %s credential configured", e.Platform)
	}
	return fmt.Sprintf("%s credential is missing required fields: %s", e.Platform, strings.Join(e.Fields, ", "))
}
func (e *CredentialMissingError) Tag() string { return TagCredentialMissing }

type PermissionDeniedError struct {
	Platform model.Platform
	Detail   string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s permission denied: %s", e.Platform, e.Detail)
}
func (e *PermissionDeniedError) Tag() string { return TagPermissionDenied }

// AspectRatioError carries the offending media reference so callers can tell the
// user which asset to fix.
type AspectRatioError struct {
	Platform model.Platform
	MediaURL string
	Subtype  model.Subtype
	Detail   string
}

func (e *AspectRatioError) Error() string {
	return fmt.Sprintf("%s rejected aspect ratio of %s for %s: %s", e.Platform, e.MediaURL, e.Subtype, e.Detail)
}
func (e *AspectRatioError) Tag() string { return TagAspectRatio }

type MediaUnfetchableError struct {
	Platform model.Platform
	MediaURL string
	Detail   string
}

func (e *MediaUnfetchableError) Error() string {
	return fmt.Sprintf("%s could not fetch media %s: %s", e.Platform, e.MediaURL, e.Detail)
}
func (e *MediaUnfetchableError) Tag() string { return TagMediaUnfetchable }

type MediaProcessingError struct {
	Platform    model.Platform
	ContainerID string
	Detail      string
}

func (e *MediaProcessingError) Error() string {
	return fmt.Sprintf("%s container %s failed processing: %s", e.Platform, e.ContainerID, e.Detail)
}
func (e *MediaProcessingError) Tag() string { return TagMediaProcessing }

type MediaProcessingTimeoutError struct {
	Platform    model.Platform
	ContainerID string
	Attempts    int
}

func (e *MediaProcessingTimeoutError) Error() string {
	return fmt.Sprintf("%s container %s not finished after %d status checks", e.Platform, e.ContainerID, e.Attempts)
}
func (e *MediaProcessingTimeoutError) Tag() string { return TagMediaProcessingTimout }

type MediaNotReadyRetryExhaustedError struct {
	Platform    model.Platform
	ContainerID string
	Attempts    int
	Err         error
}

func (e *MediaNotReadyRetryExhaustedError) Error() string {
	return fmt.Sprintf("%s container %s still not ready after %d publish attempts: %v", e.Platform, e.ContainerID, e.Attempts, e.Err)
}
func (e *MediaNotReadyRetryExhaustedError) Unwrap() error { return e.Err }
func (e *MediaNotReadyRetryExhaustedError) Tag() string   { return TagMediaNotReady }

type ContainerCreationError struct {
	Platform model.Platform
	Err      error
}

func (e *ContainerCreationError) Error() string {
	return fmt.Sprintf("%s container creation failed: %v", e.Platform, e.Err)
}
func (e *ContainerCreationError) Unwrap() error { return e.Err }
func (e *ContainerCreationError) Tag() string   { return TagContainerCreation }

type PublishError struct {
	Platform model.Platform
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s publish failed: %v", e.Platform, e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }
func (e *PublishError) Tag() string   { return TagPublish }

type UnsupportedSubtypeError struct {
	Platform model.Platform
	Subtype  model.Subtype
}

func (e *UnsupportedSubtypeError) Error() string {
	return fmt.Sprintf("%s platform does not support %s publishing", e.Platform, e.Subtype)
}
func (e *UnsupportedSubtypeError) Tag() string { return TagUnsupportedSubtype }
