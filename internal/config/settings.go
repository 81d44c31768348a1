package config

import (
	"path/filepath"

	"fyne.io/fyne/v2"

	"github.com/ytget/yt-merger/internal/platform"
)

// QualityPreset picks the video resolution policy in the GUI
type QualityPreset string

const (
	QualityBest  QualityPreset = "best"
	Quality1080p QualityPreset = "1080p"
	Quality720p  QualityPreset = "720p"
)

// Resolution returns the fixed height for the preset, 0 for best available
func (q QualityPreset) Resolution() int {
	switch q {
	case Quality1080p:
		return 1080
	case Quality720p:
		return 720
	default:
		return 0
	}
}

// Settings keys for Fyne preferences
const (
	KeyOutputDirectory    = "output_directory"
	KeyMaxParallelRuns    = "max_parallel_runs"
	KeyQualityPreset      = "quality_preset"
	KeyLanguage           = "app_language"
	KeyAutoRevealComplete = "auto_reveal_on_complete"
)

// Default values
const (
	DefaultMaxParallel        = 2
	MaxParallelLimit          = 10
	DefaultQualityPreset      = QualityBest
	DefaultLanguage           = "system"
	DefaultAutoRevealComplete = false
)

// Settings manages GUI configuration stored in Fyne preferences
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetOutputDirectory returns the folder merged files are written to
func (s *Settings) GetOutputDirectory() string {
	dir := s.app.Preferences().String(KeyOutputDirectory)
	if dir == "" {
		dir = platform.DefaultOutputDir()
		s.SetOutputDirectory(dir)
	}
	return dir
}

// SetOutputDirectory sets the output directory
func (s *Settings) SetOutputDirectory(dir string) {
	s.app.Preferences().SetString(KeyOutputDirectory, dir)
}

// GetMaxParallelRuns returns how many runs may execute at once
func (s *Settings) GetMaxParallelRuns() int {
	value := s.app.Preferences().Int(KeyMaxParallelRuns)
	if value <= 0 {
		s.SetMaxParallelRuns(DefaultMaxParallel)
		return DefaultMaxParallel
	}
	return value
}

// SetMaxParallelRuns sets the parallel run limit, clamped to 1..MaxParallelLimit
func (s *Settings) SetMaxParallelRuns(count int) {
	if count < 1 {
		count = 1
	}
	if count > MaxParallelLimit {
		count = MaxParallelLimit
	}
	s.app.Preferences().SetInt(KeyMaxParallelRuns, count)
}

// GetQualityPreset returns the configured quality preset
func (s *Settings) GetQualityPreset() QualityPreset {
	preset := QualityPreset(s.app.Preferences().String(KeyQualityPreset))
	for _, known := range s.GetQualityPresetOptions() {
		if preset == known {
			return preset
		}
	}
	s.SetQualityPreset(DefaultQualityPreset)
	return DefaultQualityPreset
}

// SetQualityPreset sets the quality preset
func (s *Settings) SetQualityPreset(preset QualityPreset) {
	s.app.Preferences().SetString(KeyQualityPreset, string(preset))
}

// GetQualityPresetOptions returns available quality preset options
func (s *Settings) GetQualityPresetOptions() []QualityPreset {
	return []QualityPreset{QualityBest, Quality1080p, Quality720p}
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
	}
}

// GetAutoRevealOnComplete returns whether to reveal merged files when done
func (s *Settings) GetAutoRevealOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(KeyAutoRevealComplete, DefaultAutoRevealComplete)
}

// SetAutoRevealOnComplete sets whether to reveal merged files when done
func (s *Settings) SetAutoRevealOnComplete(autoReveal bool) {
	s.app.Preferences().SetBool(KeyAutoRevealComplete, autoReveal)
}

// Options folds the GUI settings into run options
func (s *Settings) Options() *Options {
	opts := DefaultOptions()
	opts.OutputDir = s.GetOutputDirectory()
	opts.LogDir = filepath.Join(opts.OutputDir, LogSubdirName)
	opts.MaxParallel = s.GetMaxParallelRuns()
	opts.Resolution = s.GetQualityPreset().Resolution()
	return opts
}
