package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

type photoForm struct {
	AccessToken string `url:"access_token"`
	URL         string `url:"url"`
	Published   bool   `url:"published"`
}

type videoForm struct {
	AccessToken string `url:"access_token"`
	FileURL     string `url:"file_url"`
	Description string `url:"description,omitempty"`
	Published   bool   `url:"published"`
}

// Facebook publishes page posts. Only the post subtype exists on pages here;
// images go through an unpublished photo plus a feed post, videos through an
// unpublished video that is flipped to published once processed.
type Facebook struct {
	client *Client
}

func NewFacebook(client *Client) *Facebook {
	return &Facebook{client: client}
}

func (fb *Facebook) Platform() model.Platform { return model.PlatformFacebook }

func (fb *Facebook) SupportsSubtype(subtype model.Subtype) bool {
	return subtype == model.SubtypePost
}

func (fb *Facebook) ClassifyError(err error) apperror.Class { return ClassifyError(err) }

func (fb *Facebook) CreateContainer(ctx context.Context, req *dto.ContainerRequest) (string, error) {
	if !fb.SupportsSubtype(req.Subtype) {
		return "", &apperror.UnsupportedSubtypeError{Platform: model.PlatformFacebook, Subtype: req.Subtype}
	}
	item := req.Media[0]
	var out idResponse
	var err error
	if item.Kind == model.MediaKindVideo {
		err = fb.client.PostForm(ctx, req.PageID+"/videos", &videoForm{
			AccessToken: req.AccessToken,
			FileURL:     item.URL,
			Description: req.Caption,
		}, &out)
	} else {
		err = fb.client.PostForm(ctx, req.PageID+"/photos", &photoForm{
			AccessToken: req.AccessToken,
			URL:         item.URL,
		}, &out)
	}
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("facebook returned no media id")
	}
	return out.ID, nil
}

func (fb *Facebook) ContainerStatus(ctx context.Context, accessToken, containerID string) (*model.RemoteContainer, error) {
	params := tokenParams(accessToken)
	params.Set("fields", "status")
	var out struct {
		Status struct {
			VideoStatus string `json:"video_status"`
		} `json:"status"`
	}
	if err := fb.client.Get(ctx, containerID, params, &out); err != nil {
		return nil, err
	}
	rc := &model.RemoteContainer{ID: containerID, StatusMessage: out.Status.VideoStatus}
	switch out.Status.VideoStatus {
	case "ready":
		rc.Status = model.ContainerFinished
	case "error", "expired":
		rc.Status = model.ContainerError
	default:
		rc.Status = model.ContainerInProgress
	}
	return rc, nil
}

func (fb *Facebook) PublishContainer(ctx context.Context, req *dto.PublishContainerRequest) (string, error) {
	if req.Kind == model.MediaKindVideo {
		form := tokenParams(req.AccessToken)
		form.Set("published", "true")
		var out struct {
			Success bool `json:"success"`
		}
		if err := fb.client.PostForm(ctx, req.ContainerID, form, &out); err != nil {
			return "", err
		}
		if !out.Success {
			return "", fmt.Errorf("facebook did not publish video %s", req.ContainerID)
		}
		return req.ContainerID, nil
	}

	form := url.Values{}
	form.Set("access_token", req.AccessToken)
	form.Set("message", req.Caption)
	form.Set("attached_media[0]", fmt.Sprintf(`{"media_fbid":%q}`, req.ContainerID))
	var out idResponse
	if err := fb.client.PostForm(ctx, req.PageID+"/feed", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("facebook returned no post id")
	}
	return out.ID, nil
}

func (fb *Facebook) CanonicalURL(ctx context.Context, accessToken, pageID string, _ model.Subtype, kind model.MediaKind, remoteID string) string {
	if link := lookupPermalink(ctx, fb.client, accessToken, remoteID, "permalink_url"); link != "" {
		return absoluteFacebookURL(link)
	}
	if kind == model.MediaKindVideo {
		return fmt.Sprintf("https://www.facebook.com/%s/videos/%s", pageID, remoteID)
	}
	return fmt.Sprintf("https://www.facebook.com/%s", remoteID)
}

// video permalinks come back relative ("/123/videos/456/")
func absoluteFacebookURL(link string) string {
	if len(link) > 0 && link[0] == '/' {
		return "https://www.facebook.com" + link
	}
	return link
}
