// Package ui contains the Fyne-based desktop user interface. It turns user
// input into pipeline runs and renders their log, progress and outcome.
// All UI strings are localized via Localization.
package ui
