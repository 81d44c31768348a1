package download

// Package download fetches one selected stream to a local file, reporting
// integer progress on every chunk. Failures are returned as *Error so callers
// can tell an invalid stream from network and disk problems.
