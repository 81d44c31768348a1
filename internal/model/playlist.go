package model

import (
	"time"
)

// PlaylistStatus represents the current status of a playlist batch
type PlaylistStatus string

const (
	PlaylistStatusParsing   PlaylistStatus = "parsing"
	PlaylistStatusReady     PlaylistStatus = "ready"
	PlaylistStatusRunning   PlaylistStatus = "running"
	PlaylistStatusCompleted PlaylistStatus = "completed"
	PlaylistStatusError     PlaylistStatus = "error"
)

// VideoStatus represents the status of a single playlist entry
type VideoStatus string

const (
	VideoStatusPending   VideoStatus = "pending"
	VideoStatusRunning   VideoStatus = "running"
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusError     VideoStatus = "error"
)

// PlaylistVideo is one entry of a playlist; each entry becomes its own pipeline run
type PlaylistVideo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	RunID      string      `json:"run_id,omitempty"`
	Status     VideoStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	OutputPath string      `json:"output_path,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Playlist represents a YouTube playlist with its videos
type Playlist struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	URL         string           `json:"url"`
	Videos      []*PlaylistVideo `json:"videos"`
	Status      PlaylistStatus   `json:"status"`
	TotalVideos int              `json:"total_videos"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewPlaylist creates a new playlist instance
func NewPlaylist(url string) *Playlist {
	now := time.Now()
	return &Playlist{
		URL:       url,
		Status:    PlaylistStatusParsing,
		Videos:    make([]*PlaylistVideo, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddVideo adds a video to the playlist
func (p *Playlist) AddVideo(video *PlaylistVideo) {
	p.Videos = append(p.Videos, video)
	p.TotalVideos = len(p.Videos)
	p.UpdatedAt = time.Now()
}

// UpdateStatus updates the playlist status
func (p *Playlist) UpdateStatus(status PlaylistStatus) {
	p.Status = status
	p.UpdatedAt = time.Now()
}

// FindVideoByRun returns the entry started as run id
func (p *Playlist) FindVideoByRun(runID string) *PlaylistVideo {
	for _, video := range p.Videos {
		if video.RunID == runID {
			return video
		}
	}
	return nil
}

// MarkVideo records the terminal result of an entry
func (p *Playlist) MarkVideo(videoID string, status VideoStatus, outputPath, errMsg string) {
	for _, video := range p.Videos {
		if video.ID == videoID {
			video.Status = status
			video.OutputPath = outputPath
			video.Error = errMsg
			video.UpdatedAt = time.Now()
			break
		}
	}
	p.UpdatedAt = time.Now()
}

// GetCompletedVideos returns all completed videos
func (p *Playlist) GetCompletedVideos() []*PlaylistVideo {
	var completed []*PlaylistVideo
	for _, video := range p.Videos {
		if video.Status == VideoStatusCompleted {
			completed = append(completed, video)
		}
	}
	return completed
}

// IsReadyForDownload checks if playlist is ready to start
func (p *Playlist) IsReadyForDownload() bool {
	return p.Status == PlaylistStatusReady && p.TotalVideos > 0
}

// HasErrors checks if any video has errors
func (p *Playlist) HasErrors() bool {
	for _, video := range p.Videos {
		if video.Status == VideoStatusError {
			return true
		}
	}
	return false
}
