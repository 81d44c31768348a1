package download

import (
	"context"

	"github.com/ytget/yt-merger/internal/model"
)

// ProgressFunc receives the download percentage (0..100)
type ProgressFunc func(percent int)

// StreamDownloader defines the interface used by the pipeline to fetch streams.
type StreamDownloader interface {
	Download(ctx context.Context, task *model.DownloadTask, onProgress ProgressFunc) error
}
