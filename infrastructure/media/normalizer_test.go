package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (io.ReadCloser, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(bytes.NewReader(f.data)), f.contentType, nil
}

type blobMock struct{ mock.Mock }

func (m *blobMock) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTargetFor(t *testing.T) {
	tests := []struct {
		name    string
		subtype model.Subtype
		w, h    int
		ok      bool
		target  Size
	}{
		{"feed 1.2 accepted", model.SubtypePost, 1200, 1000, true, squareTarget},
		{"feed lower bound", model.SubtypePost, 800, 1000, true, squareTarget},
		{"feed upper bound", model.SubtypeCarousel, 1910, 1000, true, squareTarget},
		{"feed too wide", model.SubtypePost, 2500, 1000, false, squareTarget},
		{"feed too tall", model.SubtypePost, 1000, 2000, false, squareTarget},
		{"story 9:16", model.SubtypeStory, 1080, 1920, true, verticalTarget},
		{"story near 9:16", model.SubtypeStory, 1085, 1920, true, verticalTarget},
		{"story square", model.SubtypeStory, 1080, 1080, false, verticalTarget},
		{"reel 4:5", model.SubtypeReel, 1080, 1350, false, verticalTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := TargetFor(tt.subtype, tt.w, tt.h)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestNormalize_VideoUntouched(t *testing.T) {
	fetcher := &fakeFetcher{}
	blobs := &blobMock{}
	n := NewNormalizer(fetcher, blobs, 90)

	out, kind, err := n.Normalize(context.Background(), "https://cdn.test/clip.MP4?sig=1", model.SubtypeReel)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/clip.MP4?sig=1", out)
	assert.Equal(t, model.MediaKindVideo, kind)
	assert.Zero(t, fetcher.calls)
	blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalize_VideoByContentType(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("...."), contentType: "video/mp4"}
	n := NewNormalizer(fetcher, &blobMock{}, 90)

	out, kind, err := n.Normalize(context.Background(), "https://cdn.test/stream", model.SubtypeReel)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/stream", out)
	assert.Equal(t, model.MediaKindVideo, kind)
	assert.Equal(t, 1, fetcher.calls)
}

func TestNormalize_AcceptedRatioUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{data: pngOf(t, 120, 100), contentType: "image/png"}
	blobs := &blobMock{}
	n := NewNormalizer(fetcher, blobs, 90)

	out, kind, err := n.Normalize(context.Background(), "https://cdn.test/a.png", model.SubtypePost)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.png", out)
	assert.Equal(t, model.MediaKindImage, kind)
	blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalize_WideFeedImageCropped(t *testing.T) {
	fetcher := &fakeFetcher{data: pngOf(t, 250, 100), contentType: "image/png"}
	blobs := &blobMock{}
	var stored []byte
	blobs.On("Put", mock.Anything, mock.MatchedBy(func(k string) bool { return strings.HasSuffix(k, ".jpg") }), "image/jpeg", mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(3).([]byte) }).
		Return("https://media.test/normalized/new.jpg", nil).Once()
	n := NewNormalizer(fetcher, blobs, 90)

	out, kind, err := n.Normalize(context.Background(), "https://cdn.test/wide.png", model.SubtypePost)

	require.NoError(t, err)
	assert.Equal(t, "https://media.test/normalized/new.jpg", out)
	assert.Equal(t, model.MediaKindImage, kind)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Width)
	assert.Equal(t, 1080, cfg.Height)
	blobs.AssertExpectations(t)
}

func TestNormalize_StoryCroppedToVertical(t *testing.T) {
	fetcher := &fakeFetcher{data: pngOf(t, 100, 100), contentType: "image/png"}
	blobs := &blobMock{}
	var stored []byte
	blobs.On("Put", mock.Anything, mock.Anything, "image/jpeg", mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(3).([]byte) }).
		Return("https://media.test/normalized/story.jpg", nil).Once()

	out, _, err := NewNormalizer(fetcher, blobs, 90).Normalize(context.Background(), "https://cdn.test/sq.png", model.SubtypeStory)

	require.NoError(t, err)
	assert.Equal(t, "https://media.test/normalized/story.jpg", out)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Width)
	assert.Equal(t, 1920, cfg.Height)
}

func TestNormalize_Errors(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		_, _, err := NewNormalizer(&fakeFetcher{err: errors.New("404")}, &blobMock{}, 90).
			Normalize(context.Background(), "https://cdn.test/a.jpg", model.SubtypePost)
		require.ErrorIs(t, err, repository.ErrMediaUnfetchable)
	})
	t.Run("not an image", func(t *testing.T) {
		_, _, err := NewNormalizer(&fakeFetcher{data: []byte("<html>"), contentType: "text/html"}, &blobMock{}, 90).
			Normalize(context.Background(), "https://cdn.test/a.jpg", model.SubtypePost)
		require.ErrorIs(t, err, repository.ErrMediaUnfetchable)
	})
	t.Run("blob store", func(t *testing.T) {
		blobs := &blobMock{}
		denied := errors.New("denied")
		blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", denied)
		_, _, err := NewNormalizer(&fakeFetcher{data: pngOf(t, 300, 100)}, blobs, 90).
			Normalize(context.Background(), "https://cdn.test/a.png", model.SubtypePost)
		require.ErrorIs(t, err, denied)
		assert.NotErrorIs(t, err, repository.ErrMediaUnfetchable)
	})
}

func TestCoverFit_CropsCentre(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 100))
	// a red band in the middle third survives a centred square crop
	for x := 100; x < 200; x++ {
		for y := 0; y < 100; y++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	out := CoverFit(src, Size{W: 50, H: 50})
	assert.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
	r, _, _, _ := out.At(25, 25).RGBA()
	assert.Greater(t, r, uint32(0xf000))
}

func TestNormalize_NoBlobStoreKeepsOriginal(t *testing.T) {
	fetcher := &fakeFetcher{data: pngOf(t, 250, 100), contentType: "image/png"}

	out, _, err := NewNormalizer(fetcher, nil, 90).Normalize(context.Background(), "https://cdn.test/wide.png", model.SubtypePost)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/wide.png", out)
}
