// Package pipeline runs a URL through stream selection, video and audio
// download, merge and cleanup, reporting log, progress and completion
// events to a Listener. Service manages several runs in parallel.
package pipeline
