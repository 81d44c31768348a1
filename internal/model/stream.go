package model

import "strings"

// StreamKind tells whether a stream carries video or audio
type StreamKind string

const (
	StreamKindVideo StreamKind = "video"
	StreamKindAudio StreamKind = "audio"
)

// String returns the string representation of StreamKind
func (k StreamKind) String() string {
	return string(k)
}

// VideoMetadata describes a remote video. Immutable once fetched.
type VideoMetadata struct {
	ID        string
	Title     string
	SourceURL string
}

// StreamDescriptor describes one stream offered by a provider.
// Quality is the resolution height for video and the bitrate (bits/s) for audio.
type StreamDescriptor struct {
	ID           string // provider specific stream id (itag for YouTube)
	SourceID     string // provider specific video id
	Kind         StreamKind
	Container    string
	Codecs       string
	Quality      int
	QualityLabel string // "1080p", "128kbps"
	Adaptive     bool
	TotalBytes   int64
}

// MatchesContainer reports whether the stream is packaged in the given container.
func (s StreamDescriptor) MatchesContainer(container string) bool {
	return strings.EqualFold(s.Container, container)
}

// Label returns a short human readable description of the stream
func (s StreamDescriptor) Label() string {
	if s.QualityLabel != "" {
		return s.QualityLabel
	}
	return s.Kind.String() + "/" + s.ID
}

// SelectionResult holds the streams picked for a run. Either side may be nil.
type SelectionResult struct {
	Video *StreamDescriptor
	Audio *StreamDescriptor
}

// Complete reports whether both a video and an audio stream were selected
func (r SelectionResult) Complete() bool {
	return r.Video != nil && r.Audio != nil
}
