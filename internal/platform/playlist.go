package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-merger/internal/model"
)

// Timeout constants
const (
	DefaultParseTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// Default values
const (
	DefaultPlaylistName = "Unknown Playlist"
	PlaylistSuffix      = " Playlist"
	MinPrefixLength     = 10
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// playlistLister fetches the entries of a playlist by id
type playlistLister func(ctx context.Context, playlistID string) ([]*model.PlaylistVideo, error)

// YTDLPParserService expands playlist URLs into their videos using ytdlp
type YTDLPParserService struct {
	timeout time.Duration
	list    playlistLister
}

// NewYTDLPParserService creates a new parser service
func NewYTDLPParserService() *YTDLPParserService {
	return &YTDLPParserService{
		timeout: DefaultParseTimeout,
		list:    listWithYTDLP,
	}
}

// SetTimeout sets the timeout for parsing operations; non-positive values are ignored
func (y *YTDLPParserService) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		y.timeout = timeout
	}
}

// IsPlaylistURL reports whether url carries a playlist parameter
func IsPlaylistURL(url string) bool {
	return ExtractPlaylistID(url) != ""
}

// ExtractPlaylistID returns the value of the list= parameter, or ""
func ExtractPlaylistID(url string) string {
	_, after, found := strings.Cut(url, PlaylistParam)
	if !found {
		return ""
	}
	id, _, _ := strings.Cut(after, ParamSeparator)
	return id
}

// ParsePlaylist fetches the playlist behind url
func (y *YTDLPParserService) ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("invalid playlist URL: %s", url)
	}

	playlist := model.NewPlaylist(url)
	playlist.ID = playlistID

	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	videos, err := y.list(ctx, playlistID)
	if err != nil {
		playlist.UpdateStatus(model.PlaylistStatusError)
		return playlist, fmt.Errorf("failed to get playlist items: %w", err)
	}

	for _, v := range videos {
		playlist.AddVideo(v)
	}
	playlist.Title = extractPlaylistTitle(videos)
	playlist.UpdateStatus(model.PlaylistStatusReady)

	return playlist, nil
}

func listWithYTDLP(ctx context.Context, playlistID string) ([]*model.PlaylistVideo, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	videos := make([]*model.PlaylistVideo, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		videos = append(videos, &model.PlaylistVideo{
			ID:        it.VideoID,
			Title:     it.Title,
			URL:       fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
			Status:    model.VideoStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return videos, nil
}

// extractPlaylistTitle generates a title for the playlist based on videos
func extractPlaylistTitle(videos []*model.PlaylistVideo) string {
	if len(videos) == 0 {
		return DefaultPlaylistName
	}
	if len(videos) > 1 {
		commonPrefix := findCommonPrefix(videos[0].Title, videos[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}
	return videos[0].Title + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings
func findCommonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:minLen]
}
