package platform

// Package platform contains OS/platform integration and external tooling glue:
// filesystem helpers, output file naming, playlist expansion via ytdlp, and
// reveal-in-file-manager.
