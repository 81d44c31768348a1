// Package merge muxes a video-only and an audio-only file into a single
// container with ffmpeg.
package merge
