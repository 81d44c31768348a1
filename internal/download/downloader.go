package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"

	"github.com/ytget/yt-merger/internal/model"
	"github.com/ytget/yt-merger/internal/provider"
)

// DefaultChunkSize is the read buffer size; progress is reported once per chunk
const DefaultChunkSize = 256 * 1024

// Downloader streams provider bytes to disk
type Downloader struct {
	opener    provider.Opener
	chunkSize int
	rateLimit int // bytes per second, 0 = unlimited
}

// Option configures a Downloader
type Option func(*Downloader)

// WithChunkSize sets the read buffer size
func WithChunkSize(size int) Option {
	return func(d *Downloader) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// WithRateLimit caps the transfer speed in bytes per second
func WithRateLimit(bytesPerSecond int) Option {
	return func(d *Downloader) {
		if bytesPerSecond > 0 {
			d.rateLimit = bytesPerSecond
		}
	}
}

// New creates a downloader reading streams from opener
func New(opener provider.Opener, opts ...Option) *Downloader {
	d := &Downloader{
		opener:    opener,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches task.Stream into task.DestinationPath, overwriting any
// existing file. A partial file is left in place on failure.
func (d *Downloader) Download(ctx context.Context, task *model.DownloadTask, onProgress ProgressFunc) (err error) {
	path := task.DestinationPath
	defer func() {
		if err != nil {
			task.State = model.DownloadStateFailed
		}
	}()

	if task.Stream.TotalBytes <= 0 {
		return &Error{Reason: ReasonInvalidStream, Path: path,
			Err: fmt.Errorf("stream %s reports %d bytes", task.Stream.ID, task.Stream.TotalBytes)}
	}

	task.State = model.DownloadStateInProgress
	task.BytesDownloaded = 0

	// The destination is created only once the stream is open
	stream, err := d.opener.Open(ctx, task.Stream)
	if err != nil {
		return &Error{Reason: ReasonNetwork, Path: path, Err: err}
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return &Error{Reason: ReasonDisk, Path: path, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &Error{Reason: ReasonDisk, Path: path, Err: cerr}
		}
	}()

	if err := d.copy(ctx, file, stream, task, onProgress); err != nil {
		return err
	}

	task.State = model.DownloadStateCompleted
	return nil
}

func (d *Downloader) copy(ctx context.Context, dst io.Writer, src io.Reader, task *model.DownloadTask, onProgress ProgressFunc) error {
	path := task.DestinationPath
	buf := make([]byte, d.chunkSize)

	var limiter *rate.Limiter
	if d.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.rateLimit), d.chunkSize)
	}

	last := -1
	for {
		if err := ctx.Err(); err != nil {
			return &Error{Reason: ReasonNetwork, Path: path, Err: err}
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if limiter != nil {
				if err := limiter.WaitN(ctx, n); err != nil {
					return &Error{Reason: ReasonNetwork, Path: path, Err: err}
				}
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return &Error{Reason: ReasonDisk, Path: path, Err: err}
			}
			task.BytesDownloaded += int64(n)

			percent := task.Percent()
			if percent < last {
				percent = last
			}
			last = percent
			if onProgress != nil {
				onProgress(percent)
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return &Error{Reason: ReasonNetwork, Path: path, Err: rerr}
		}
	}

	if task.BytesDownloaded < task.Stream.TotalBytes {
		return &Error{Reason: ReasonTruncated, Path: path,
			Err: fmt.Errorf("got %d of %d bytes: %w", task.BytesDownloaded, task.Stream.TotalBytes, io.ErrUnexpectedEOF)}
	}
	return nil
}
