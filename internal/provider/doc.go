package provider

// Package provider resolves a video URL into its title and the list of streams
// it offers, and opens a selected stream for reading. The YouTube implementation
// is built on github.com/kkdai/youtube/v2.
