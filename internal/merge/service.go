package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FFmpeg constants for stream-copy muxing
const (
	FFmpegCommand = "ffmpeg"

	// Video is copied as-is, audio is re-encoded so any source codec fits the container
	VideoCodec      = "copy"
	AudioCodec      = "aac"
	StrictMode      = "experimental"
	FFmpegLogLevel  = "error"
	VideoStreamMap  = "0:v:0"
	AudioStreamMap  = "1:a:0"
	NoOverwriteFlag = "-n"

	// ffmpeg writes to a hidden staging file next to the output first
	StagingSuffix = ".part"
)

// Service merges downloaded streams with ffmpeg
type Service struct {
	ffmpegPath string
	runner     Runner
	log        logrus.FieldLogger
}

// Option configures a Service
type Option func(*Service)

// WithFFmpegPath overrides the ffmpeg executable
func WithFFmpegPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.ffmpegPath = path
		}
	}
}

// WithRunner replaces the command runner
func WithRunner(r Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithLogger sets the logger used for command tracing
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a merge service
func NewService(opts ...Option) *Service {
	s := &Service{
		ffmpegPath: FFmpegCommand,
		runner:     ExecRunner{},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Merge muxes videoPath and audioPath into outputPath. It never overwrites
// an existing output and never deletes its inputs. ffmpeg writes to a staging
// file that is published with a hard link, so only files created by this call
// are ever removed.
func (s *Service) Merge(ctx context.Context, videoPath, audioPath, outputPath string) error {
	for _, p := range []string{videoPath, audioPath} {
		if _, err := os.Stat(p); err != nil {
			return &Error{Reason: ReasonMissingInput, Err: err}
		}
	}
	if _, err := os.Stat(outputPath); err == nil {
		return &Error{Reason: ReasonOutputExists, Err: fmt.Errorf("%s already exists", outputPath)}
	}

	staging := StagingPath(outputPath)
	defer s.removeStaging(staging)

	args := BuildFFmpegArgs(videoPath, audioPath, staging)
	s.log.Debugf("Running %s", shellescape.QuoteCommand(append([]string{s.ffmpegPath}, args...)))

	out, err := s.runner.Run(ctx, s.ffmpegPath, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &Error{Reason: ReasonToolNotFound, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &Error{Reason: ReasonToolFailure, Output: string(out), Err: err}
	}

	return publish(staging, outputPath)
}

// StagingPath returns a unique hidden path in the output directory that keeps
// the output extension, so ffmpeg still picks the right muxer.
func StagingPath(outputPath string) string {
	dir, base := filepath.Split(outputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+"."+uuid.NewString()+StagingSuffix+ext)
}

func (s *Service) removeStaging(staging string) {
	if err := os.Remove(staging); err == nil {
		s.log.Debugf("Removed staging file %s", staging)
	}
}

// publish makes staging visible as outputPath without replacing a file that
// appeared there in the meantime.
func publish(staging, outputPath string) error {
	if _, err := os.Stat(staging); err != nil {
		return &Error{Reason: ReasonToolFailure, Err: fmt.Errorf("ffmpeg produced no output: %w", err)}
	}

	err := os.Link(staging, outputPath)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return &Error{Reason: ReasonOutputExists, Err: err}
	}

	// filesystems without hard links
	if _, statErr := os.Stat(outputPath); statErr == nil {
		return &Error{Reason: ReasonOutputExists, Err: fmt.Errorf("%s already exists", outputPath)}
	}
	if err := os.Rename(staging, outputPath); err != nil {
		return &Error{Reason: ReasonToolFailure, Err: fmt.Errorf("failed to publish output: %w", err)}
	}
	return nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", FFmpegLogLevel,
		"-nostdin",
		NoOverwriteFlag, // Fail if output exists
		"-i", videoPath, // Input 0: video
		"-i", audioPath, // Input 1: audio
		"-map", VideoStreamMap,
		"-map", AudioStreamMap,
		"-c:v", VideoCodec,
		"-c:a", AudioCodec,
		"-strict", StrictMode,
		outputPath,
	}
}
