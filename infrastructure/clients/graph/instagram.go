package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-publisher/domain/apperror"
	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

var errReelNeedsVideo = errors.New("instagram reels require a video asset")

type containerForm struct {
	AccessToken    string `url:"access_token"`
	MediaType      string `url:"media_type,omitempty"`
	ImageURL       string `url:"image_url,omitempty"`
	VideoURL       string `url:"video_url,omitempty"`
	Caption        string `url:"caption,omitempty"`
	IsCarouselItem bool   `url:"is_carousel_item,omitempty"`
	Children       string `url:"children,omitempty"`
}

type publishForm struct {
	AccessToken string `url:"access_token"`
	CreationID  string `url:"creation_id"`
}

// Instagram publishes through the content publishing API of an IG business account.
type Instagram struct {
	client *Client
}

func NewInstagram(client *Client) *Instagram {
	return &Instagram{client: client}
}

func (ig *Instagram) Platform() model.Platform { return model.PlatformInstagram }

func (ig *Instagram) SupportsSubtype(subtype model.Subtype) bool {
	switch subtype {
	case model.SubtypePost, model.SubtypeStory, model.SubtypeReel, model.SubtypeCarousel:
		return true
	}
	return false
}

func (ig *Instagram) ClassifyError(err error) apperror.Class { return ClassifyError(err) }

func (ig *Instagram) CreateContainer(ctx context.Context, req *dto.ContainerRequest) (string, error) {
	if req.Subtype == model.SubtypeCarousel {
		return ig.createCarousel(ctx, req)
	}
	form, err := singleContainerForm(req.AccessToken, req.Media[0], req.Subtype, req.Caption)
	if err != nil {
		return "", err
	}
	return ig.postContainer(ctx, req.AccountID, form)
}

func singleContainerForm(token string, item dto.MediaItem, subtype model.Subtype, caption string) (*containerForm, error) {
	form := &containerForm{AccessToken: token}
	video := item.Kind == model.MediaKindVideo
	switch subtype {
	case model.SubtypeStory:
		// stories take no caption
		form.MediaType = "STORIES"
	case model.SubtypeReel:
		if !video {
			return nil, errReelNeedsVideo
		}
		form.MediaType = "REELS"
		form.Caption = caption
	default:
		if video {
			form.MediaType = "VIDEO"
		}
		form.Caption = caption
	}
	if video {
		form.VideoURL = item.URL
	} else {
		form.ImageURL = item.URL
	}
	return form, nil
}

func (ig *Instagram) createCarousel(ctx context.Context, req *dto.ContainerRequest) (string, error) {
	children := make([]string, 0, len(req.Media))
	for _, item := range req.Media {
		form := &containerForm{AccessToken: req.AccessToken, IsCarouselItem: true}
		if item.Kind == model.MediaKindVideo {
			form.MediaType = "VIDEO"
			form.VideoURL = item.URL
		} else {
			form.ImageURL = item.URL
		}
		id, err := ig.postContainer(ctx, req.AccountID, form)
		if err != nil {
			return "", fmt.Errorf("carousel item %s: %w", item.URL, err)
		}
		children = append(children, id)
	}
	return ig.postContainer(ctx, req.AccountID, &containerForm{
		AccessToken: req.AccessToken,
		MediaType:   "CAROUSEL",
		Children:    strings.Join(children, ","),
		Caption:     req.Caption,
	})
}

func (ig *Instagram) postContainer(ctx context.Context, accountID string, form *containerForm) (string, error) {
	var out idResponse
	if err := ig.client.PostForm(ctx, accountID+"/media", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("instagram returned no container id")
	}
	return out.ID, nil
}

func (ig *Instagram) ContainerStatus(ctx context.Context, accessToken, containerID string) (*model.RemoteContainer, error) {
	params := tokenParams(accessToken)
	params.Set("fields", "status_code,status")
	var out struct {
		StatusCode string `json:"status_code"`
		Status     string `json:"status"`
	}
	if err := ig.client.Get(ctx, containerID, params, &out); err != nil {
		return nil, err
	}
	return &model.RemoteContainer{
		ID:            containerID,
		Status:        containerStatus(out.StatusCode, out.Status),
		StatusMessage: out.Status,
	}, nil
}

// containerStatus reads the status_code/status pair. Finished wins; ERROR and
// EXPIRED are terminal failures; anything else is still processing.
func containerStatus(statusCode, status string) model.ContainerStatus {
	code, text := strings.ToLower(statusCode), strings.ToLower(status)
	if strings.Contains(code, "finished") || strings.Contains(text, "finished") {
		return model.ContainerFinished
	}
	if code == "error" || code == "expired" {
		return model.ContainerError
	}
	return model.ContainerInProgress
}

func (ig *Instagram) PublishContainer(ctx context.Context, req *dto.PublishContainerRequest) (string, error) {
	var out idResponse
	err := ig.client.PostForm(ctx, req.AccountID+"/media_publish", &publishForm{
		AccessToken: req.AccessToken,
		CreationID:  req.ContainerID,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("instagram returned no media id")
	}
	return out.ID, nil
}

func (ig *Instagram) CanonicalURL(ctx context.Context, accessToken, accountID string, subtype model.Subtype, _ model.MediaKind, remoteID string) string {
	if link := lookupPermalink(ctx, ig.client, accessToken, remoteID, "permalink"); link != "" {
		return link
	}
	switch subtype {
	case model.SubtypeStory:
		return fmt.Sprintf("https://www.instagram.com/stories/%s/%s/", accountID, remoteID)
	case model.SubtypeReel:
		return fmt.Sprintf("https://www.instagram.com/reel/%s/", remoteID)
	}
	return fmt.Sprintf("https://www.instagram.com/p/%s/", remoteID)
}

func lookupPermalink(ctx context.Context, c *Client, accessToken, remoteID, field string) string {
	params := tokenParams(accessToken)
	params.Set("fields", field)
	var out map[string]any
	if err := c.Get(ctx, remoteID, params, &out); err != nil {
		return ""
	}
	link, _ := out[field].(string)
	return link
}
