package model

// Package model defines the domain data shared by the pipeline: video metadata,
// stream descriptors, per-stream download tasks, pipeline runs with their
// state machine, and playlist entities used by batch mode.
