package provider

import (
	"context"
	"io"

	"github.com/ytget/yt-merger/internal/model"
)

// Opener opens the byte stream behind a descriptor
type Opener interface {
	Open(ctx context.Context, stream model.StreamDescriptor) (io.ReadCloser, error)
}

// StreamProvider fetches metadata and stream lists for a URL
type StreamProvider interface {
	Opener
	Fetch(ctx context.Context, url string) (*model.VideoMetadata, []model.StreamDescriptor, error)
}
