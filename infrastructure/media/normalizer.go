// Package media prepares assets for platforms that reject off-ratio images.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/url"
	"path"
	"strings"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	verticalRatio     = 9.0 / 16.0
	verticalTolerance = 0.01
	minFeedRatio      = 0.8
	maxFeedRatio      = 1.91
	maxImageBytes     = 30 << 20
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".avi": true, ".webm": true,
}

type Size struct{ W, H int }

var (
	verticalTarget = Size{W: 1080, H: 1920}
	squareTarget   = Size{W: 1080, H: 1080}
)

// Normalizer checks image aspect ratios against the target subtype and writes
// a cover-fit copy when they are out of range. Videos pass through untouched.
type Normalizer struct {
	fetcher repository.IMediaFetcher
	blobs   repository.IBlobStore
	quality int
}

func NewNormalizer(fetcher repository.IMediaFetcher, blobs repository.IBlobStore, quality int) *Normalizer {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Normalizer{fetcher: fetcher, blobs: blobs, quality: quality}
}

// Kind guesses the media kind from the URL path extension.
func (n *Normalizer) Kind(mediaURL string) model.MediaKind {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	if videoExtensions[strings.ToLower(path.Ext(p))] {
		return model.MediaKindVideo
	}
	return model.MediaKindImage
}

func (n *Normalizer) Normalize(ctx context.Context, mediaURL string, subtype model.Subtype) (string, model.MediaKind, error) {
	if n.Kind(mediaURL) == model.MediaKindVideo {
		return mediaURL, model.MediaKindVideo, nil
	}
	body, contentType, err := n.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", repository.ErrMediaUnfetchable, err)
	}
	defer body.Close()
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return mediaURL, model.MediaKindVideo, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes))
	if err != nil {
		return "", "", fmt.Errorf("%w: read %s: %w", repository.ErrMediaUnfetchable, mediaURL, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("%w: decode %s: %w", repository.ErrMediaUnfetchable, mediaURL, err)
	}

	target, ok := TargetFor(subtype, cfg.Width, cfg.Height)
	if ok {
		return mediaURL, model.MediaKindImage, nil
	}
	if n.blobs == nil {
		// nowhere to store a copy; the platform decides whether to accept it
		logger.GetLogger().WithField("source", mediaURL).Warn("media off ratio but no blob store configured")
		return mediaURL, model.MediaKindImage, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("%w: decode %s: %w", repository.ErrMediaUnfetchable, mediaURL, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, CoverFit(src, target), &jpeg.Options{Quality: n.quality}); err != nil {
		return "", "", fmt.Errorf("encode %s: %w", mediaURL, err)
	}
	newURL, err := n.blobs.Put(ctx, uuid.NewString()+".jpg", "image/jpeg", buf.Bytes())
	if err != nil {
		return "", "", fmt.Errorf("store normalized %s: %w", mediaURL, err)
	}
	logger.GetLogger().
		WithField("source", mediaURL).
		WithField("normalized", newURL).
		WithField("from", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)).
		WithField("to", fmt.Sprintf("%dx%d", target.W, target.H)).
		Info("media normalized")
	return newURL, model.MediaKindImage, nil
}

// TargetFor reports whether w x h is acceptable for subtype and, when it is
// not, the canvas it should be fitted to.
func TargetFor(subtype model.Subtype, w, h int) (Size, bool) {
	if w <= 0 || h <= 0 {
		return Size{}, false
	}
	r := float64(w) / float64(h)
	if subtype.IsVertical() {
		return verticalTarget, math.Abs(r-verticalRatio) < verticalTolerance
	}
	return squareTarget, r >= minFeedRatio && r <= maxFeedRatio
}

// CoverFit scales src to fill target and crops the overflow around the centre.
func CoverFit(src image.Image, target Size) image.Image {
	b := src.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())
	scale := math.Max(float64(target.W)/sw, float64(target.H)/sh)
	cw, ch := int(math.Round(float64(target.W)/scale)), int(math.Round(float64(target.H)/scale))
	if cw > b.Dx() {
		cw = b.Dx()
	}
	if ch > b.Dy() {
		ch = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	dst := image.NewRGBA(image.Rect(0, 0, target.W, target.H))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
