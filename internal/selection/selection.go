// Package selection picks the video-only and audio-only streams a run downloads.
package selection

import (
	"strings"

	"github.com/ytget/yt-merger/internal/model"
)

// DefaultContainer is the container both streams must be packaged in
const DefaultContainer = "mp4"

// Policy configures stream selection.
// Resolution 0 picks the best available video; a positive value only accepts
// adaptive video streams of exactly that height.
type Policy struct {
	Container  string
	Resolution int
}

// DefaultPolicy returns the best-available mp4 policy
func DefaultPolicy() Policy {
	return Policy{Container: DefaultContainer}
}

// ContainerOrDefault returns the lower-cased container, or DefaultContainer when unset
func (p Policy) ContainerOrDefault() string {
	if p.Container == "" {
		return DefaultContainer
	}
	return strings.ToLower(p.Container)
}

// Select chooses the highest quality adaptive video and audio streams.
// Ties keep the stream the provider listed first. A missing side is left nil.
func Select(streams []model.StreamDescriptor, policy Policy) model.SelectionResult {
	var result model.SelectionResult
	container := policy.ContainerOrDefault()

	for i := range streams {
		s := &streams[i]
		if !s.Adaptive || !s.MatchesContainer(container) {
			continue
		}
		switch s.Kind {
		case model.StreamKindVideo:
			if policy.Resolution > 0 && s.Quality != policy.Resolution {
				continue
			}
			if result.Video == nil || s.Quality > result.Video.Quality {
				result.Video = copyOf(s)
			}
		case model.StreamKindAudio:
			if result.Audio == nil || s.Quality > result.Audio.Quality {
				result.Audio = copyOf(s)
			}
		}
	}

	return result
}

func copyOf(s *model.StreamDescriptor) *model.StreamDescriptor {
	c := *s
	return &c
}
