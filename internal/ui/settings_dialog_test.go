package ui

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/ytget/yt-merger/internal/config"
)

func TestSettingsDialog_Apply(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	settings := config.NewSettings(app)
	saved := false
	sd := NewSettingsDialog(settings, NewLocalization(), app.NewWindow("test"), func() { saved = true })
	sd.loadCurrentSettings()

	if sd.maxParallelEntry.Text != "2" {
		t.Errorf("max parallel entry = %q, expected 2", sd.maxParallelEntry.Text)
	}

	outDir := t.TempDir()
	sd.outputDirEntry.SetText(outDir)
	sd.maxParallelEntry.SetText("4")
	sd.qualitySelect.SetSelected(string(config.Quality720p))
	sd.languageSelect.SetSelected("ru")
	sd.autoRevealCheck.SetChecked(true)
	sd.apply()

	if !saved {
		t.Error("onSaved was not called")
	}
	if got := settings.GetOutputDirectory(); got != outDir {
		t.Errorf("GetOutputDirectory() = %q, expected %q", got, outDir)
	}
	if got := settings.GetMaxParallelRuns(); got != 4 {
		t.Errorf("GetMaxParallelRuns() = %d, expected 4", got)
	}
	if got := settings.GetQualityPreset(); got != config.Quality720p {
		t.Errorf("GetQualityPreset() = %q, expected %q", got, config.Quality720p)
	}
	if got := settings.GetLanguage(); got != "ru" {
		t.Errorf("GetLanguage() = %q, expected ru", got)
	}
	if !settings.GetAutoRevealOnComplete() {
		t.Error("GetAutoRevealOnComplete() = false, expected true")
	}
}

func TestSettingsDialog_ApplyIgnoresInvalidParallel(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	settings := config.NewSettings(app)
	sd := NewSettingsDialog(settings, NewLocalization(), app.NewWindow("test"), nil)
	sd.loadCurrentSettings()
	sd.maxParallelEntry.SetText("many")
	sd.apply()

	if got := settings.GetMaxParallelRuns(); got != config.DefaultMaxParallel {
		t.Errorf("GetMaxParallelRuns() = %d, expected %d", got, config.DefaultMaxParallel)
	}
}

func TestLocalization(t *testing.T) {
	l := NewLocalization()
	if got := l.GetText(KeyDownload); got != "Download" {
		t.Errorf("GetText(KeyDownload) = %q, expected Download", got)
	}

	l.SetLanguage("ru")
	if got := l.GetCurrentLanguage(); got != "ru" {
		t.Errorf("GetCurrentLanguage() = %q, expected ru", got)
	}
	if got := l.GetText(KeyDownload); got != "Скачать" {
		t.Errorf("GetText(KeyDownload) = %q, expected Скачать", got)
	}

	l.SetLanguage("system")
	if got := l.GetCurrentLanguage(); got != "en" {
		t.Errorf("system language = %q, expected en", got)
	}

	l.SetLanguage("xx")
	if got := l.GetCurrentLanguage(); got != "en" {
		t.Errorf("unknown language switched to %q", got)
	}
	if got := l.GetText("missing_key"); got != "missing_key" {
		t.Errorf("GetText(missing) = %q, expected key fallback", got)
	}
}
