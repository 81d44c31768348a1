package provider

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/model"
)

// Cache settings. Resolved stream URLs stop working after a few hours.
const (
	DefaultVideoTTL        = 30 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// MIME type prefixes
const (
	mimeVideoPrefix = "video/"
	mimeAudioPrefix = "audio/"
)

// youtubeClient is the part of *youtube.Client the provider needs
type youtubeClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTubeProvider implements StreamProvider on top of kkdai/youtube
type YouTubeProvider struct {
	client youtubeClient
	videos *cache.Cache
}

// NewYouTubeProvider creates a provider with a default client
func NewYouTubeProvider() *YouTubeProvider {
	return newYouTubeProvider(&youtube.Client{}, DefaultVideoTTL)
}

func newYouTubeProvider(client youtubeClient, ttl time.Duration) *YouTubeProvider {
	return &YouTubeProvider{
		client: client,
		videos: cache.New(ttl, DefaultCleanupInterval),
	}
}

// Fetch resolves url and returns its metadata with every offered stream
func (p *YouTubeProvider) Fetch(ctx context.Context, url string) (*model.VideoMetadata, []model.StreamDescriptor, error) {
	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get video info: %w", err)
	}
	p.videos.Set(video.ID, video, cache.DefaultExpiration)

	streams := make([]model.StreamDescriptor, 0, len(video.Formats))
	for i := range video.Formats {
		streams = append(streams, describeFormat(video.ID, &video.Formats[i]))
	}

	logrus.WithFields(logrus.Fields{
		"video_id": video.ID,
		"formats":  len(streams),
	}).Debug("Fetched video formats")

	meta := &model.VideoMetadata{
		ID:        video.ID,
		Title:     video.Title,
		SourceURL: url,
	}
	return meta, streams, nil
}

// Open starts the transfer of stream. The video is looked up in the cache
// filled by Fetch and fetched again if it expired.
func (p *YouTubeProvider) Open(ctx context.Context, stream model.StreamDescriptor) (io.ReadCloser, error) {
	video, err := p.video(ctx, stream.SourceID)
	if err != nil {
		return nil, err
	}

	itag, err := strconv.Atoi(stream.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid stream id %q: %w", stream.ID, err)
	}

	var format *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == itag {
			format = &video.Formats[i]
			break
		}
	}
	if format == nil {
		return nil, fmt.Errorf("stream %d is no longer offered for video %s", itag, video.ID)
	}

	rc, _, err := p.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream %d: %w", itag, err)
	}
	return rc, nil
}

func (p *YouTubeProvider) video(ctx context.Context, id string) (*youtube.Video, error) {
	if cached, ok := p.videos.Get(id); ok {
		return cached.(*youtube.Video), nil
	}
	video, err := p.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh video %s: %w", id, err)
	}
	p.videos.Set(video.ID, video, cache.DefaultExpiration)
	return video, nil
}

// describeFormat maps a YouTube format onto a StreamDescriptor
func describeFormat(videoID string, f *youtube.Format) model.StreamDescriptor {
	mediaType, params, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(f.MimeType, ";", 2)[0])
	}

	d := model.StreamDescriptor{
		ID:         strconv.Itoa(f.ItagNo),
		SourceID:   videoID,
		Codecs:     params["codecs"],
		TotalBytes: f.ContentLength,
	}

	switch {
	case strings.HasPrefix(mediaType, mimeAudioPrefix):
		d.Kind = model.StreamKindAudio
		d.Container = strings.TrimPrefix(mediaType, mimeAudioPrefix)
		d.Quality = bitrate(f)
		d.QualityLabel = fmt.Sprintf("%dkbps", d.Quality/1000)
		d.Adaptive = true
	default:
		d.Kind = model.StreamKindVideo
		d.Container = strings.TrimPrefix(mediaType, mimeVideoPrefix)
		d.Quality = height(f)
		d.QualityLabel = f.QualityLabel
		if d.QualityLabel == "" && d.Quality > 0 {
			d.QualityLabel = fmt.Sprintf("%dp", d.Quality)
		}
		// Progressive formats carry an audio track as well
		d.Adaptive = f.AudioChannels == 0
	}

	return d
}

func bitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// height falls back to the leading digits of the quality label ("1080p60")
func height(f *youtube.Format) int {
	if f.Height > 0 {
		return f.Height
	}
	label := f.QualityLabel
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	h, _ := strconv.Atoi(label[:end])
	return h
}
