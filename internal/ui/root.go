package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/config"
	"github.com/ytget/yt-merger/internal/model"
	"github.com/ytget/yt-merger/internal/pipeline"
	"github.com/ytget/yt-merger/internal/platform"
)

// RunManager is the part of pipeline.Service the UI drives
type RunManager interface {
	AddRequest(req pipeline.Request) (pipeline.RunInfo, error)
	StopRun(id string) error
	GetAllRuns() []pipeline.RunInfo
	SetUpdateCallback(func(pipeline.RunInfo))
}

// PlaylistParser expands playlist URLs
type PlaylistParser interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}

// RootUI represents the main window
type RootUI struct {
	window       fyne.Window
	runs         RunManager
	parser       PlaylistParser
	settings     *config.Settings
	localization *Localization

	urlEntry    *widget.Entry
	folderEntry *widget.Entry
	downloadBtn *widget.Button
	stopBtn     *widget.Button
	progressBar *widget.ProgressBar
	stageLabel  *widget.Label
	logLabel    *widget.Label
	logScroll   *container.Scroll
	runList     *widget.List

	mu         sync.Mutex
	snapshot   []pipeline.RunInfo
	selectedID string
	notified   map[string]bool
}

// NewRootUI creates the main UI and subscribes to run updates
func NewRootUI(window fyne.Window, settings *config.Settings, runs RunManager, parser PlaylistParser) *RootUI {
	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		window:       window,
		runs:         runs,
		parser:       parser,
		settings:     settings,
		localization: localization,
		notified:     make(map[string]bool),
	}

	window.SetTitle(localization.GetText(KeyAppTitle))
	ui.setupUI()
	runs.SetUpdateCallback(ui.onRunUpdate)
	return ui
}

func (ui *RootUI) setupUI() {
	text := ui.localization.GetText
	ui.createMenu()

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder(text(KeyEnterURL))
	ui.urlEntry.Validator = ui.validateURL
	ui.urlEntry.OnSubmitted = func(string) { ui.onDownloadClick() }

	ui.downloadBtn = widget.NewButtonWithIcon(text(KeyDownload), theme.DownloadIcon(), ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	urlRow := container.NewBorder(nil, nil, settingsBtn, ui.downloadBtn, ui.urlEntry)

	ui.folderEntry = widget.NewEntry()
	ui.folderEntry.SetText(ui.settings.GetOutputDirectory())
	browseBtn := widget.NewButton(IconFolder+" "+text(KeyBrowse), ui.onBrowseFolder)
	folderRow := container.NewBorder(nil, nil, widget.NewLabel(text(KeyOutputFolder)), browseBtn, ui.folderEntry)

	ui.progressBar = widget.NewProgressBar()
	ui.stageLabel = widget.NewLabel("")
	ui.stopBtn = widget.NewButton(IconStop+" "+text(KeyStop), ui.onStopClick)
	ui.stopBtn.Disable()
	progressRow := container.NewBorder(nil, nil, ui.stageLabel, ui.stopBtn, ui.progressBar)

	ui.runList = widget.NewList(
		func() int {
			ui.mu.Lock()
			defer ui.mu.Unlock()
			return len(ui.snapshot)
		},
		ui.createRunItem,
		ui.updateRunItem,
	)
	ui.runList.OnSelected = func(id widget.ListItemID) {
		ui.mu.Lock()
		if id >= 0 && id < len(ui.snapshot) {
			ui.selectedID = ui.snapshot[id].ID
		}
		ui.mu.Unlock()
		ui.refreshDetails()
	}

	ui.logLabel = widget.NewLabel("")
	ui.logLabel.Wrapping = fyne.TextWrapWord
	ui.logScroll = container.NewVScroll(ui.logLabel)

	split := container.NewVSplit(ui.runList, ui.logScroll)
	split.Offset = LogSplitOffset

	top := container.NewVBox(urlRow, folderRow, progressRow)
	ui.window.SetContent(container.NewBorder(top, nil, nil, nil, split))
	ui.window.Resize(fyne.NewSize(WindowMinWidth, WindowMinHeight))
}

func (ui *RootUI) createMenu() {
	text := ui.localization.GetText
	settingsItem := fyne.NewMenuItem(text(KeySettings), ui.onShowSettings)
	ui.window.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu(text(KeyFile), settingsItem)))
}

func (ui *RootUI) validateURL(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(ui.localization.GetText(KeyInvalidURL))
	}
	return nil
}

func (ui *RootUI) onDownloadClick() {
	raw := strings.TrimSpace(ui.urlEntry.Text)
	if raw == "" {
		dialog.ShowInformation(ui.localization.GetText(KeyAppTitle), ui.localization.GetText(KeyPleaseEnterURL), ui.window)
		return
	}
	if err := ui.validateURL(raw); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	outputDir := strings.TrimSpace(ui.folderEntry.Text)
	if outputDir == "" {
		outputDir = ui.settings.GetOutputDirectory()
	}

	if platform.IsPlaylistURL(raw) && ui.parser != nil {
		ui.stageLabel.SetText(ui.localization.GetText(KeyParsingPlaylist))
		go ui.queuePlaylist(raw, outputDir)
	} else if err := ui.queue(raw, outputDir); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	ui.urlEntry.SetText("")
}

func (ui *RootUI) queue(rawURL, outputDir string) error {
	info, err := ui.runs.AddRequest(pipeline.Request{
		URL:       rawURL,
		OutputDir: outputDir,
		LogDir:    outputDirLogs(outputDir),
	})
	if err != nil {
		logrus.WithError(err).Warn("Run not queued")
		return fmt.Errorf("%s: %w", ui.localization.GetText(KeyAlreadyInQueue), err)
	}
	ui.mu.Lock()
	ui.selectedID = info.ID
	ui.mu.Unlock()
	return nil
}

// queuePlaylist runs off the UI thread
func (ui *RootUI) queuePlaylist(rawURL, outputDir string) {
	playlist, err := ui.parser.ParsePlaylist(context.Background(), rawURL)
	if err != nil {
		fyne.Do(func() {
			ui.stageLabel.SetText("")
			dialog.ShowError(err, ui.window)
		})
		return
	}

	for _, video := range playlist.Videos {
		if err := ui.queue(video.URL, outputDir); err != nil {
			logrus.WithField("video", video.ID).WithError(err).Warn("Playlist entry skipped")
		}
	}
	fyne.Do(func() {
		ui.stageLabel.SetText(fmt.Sprintf("%s: %d", ui.localization.GetText(KeyPlaylistQueued), len(playlist.Videos)))
	})
}

func (ui *RootUI) onStopClick() {
	ui.mu.Lock()
	id := ui.selectedID
	ui.mu.Unlock()
	if id == "" {
		return
	}
	if err := ui.runs.StopRun(id); err != nil {
		logrus.WithError(err).Debug("Stop ignored")
	}
}

func (ui *RootUI) onBrowseFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		ui.folderEntry.SetText(uri.Path())
		ui.settings.SetOutputDirectory(uri.Path())
	}, ui.window)
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.window, func() {
		ui.folderEntry.SetText(ui.settings.GetOutputDirectory())
	}).Show()
}

// onRunUpdate is called from run goroutines
func (ui *RootUI) onRunUpdate(info pipeline.RunInfo) {
	snapshot := ui.runs.GetAllRuns()

	ui.mu.Lock()
	ui.snapshot = snapshot
	if ui.selectedID == "" {
		ui.selectedID = info.ID
	}
	notify := info.IsFinished() && !ui.notified[info.ID]
	if notify {
		ui.notified[info.ID] = true
	}
	ui.mu.Unlock()

	fyne.Do(func() {
		ui.runList.Refresh()
		ui.refreshDetails()
		if notify {
			ui.showOutcome(info)
		}
	})
}

// refreshDetails renders the selected run; must run on the UI thread
func (ui *RootUI) refreshDetails() {
	info, ok := ui.selectedRun()
	if !ok {
		return
	}
	ui.progressBar.SetValue(float64(info.Percent) / 100)
	ui.stageLabel.SetText(stateText(info))
	ui.logLabel.SetText(strings.Join(info.Logs, "\n"))
	ui.logScroll.ScrollToBottom()
	if info.IsFinished() {
		ui.stopBtn.Disable()
	} else {
		ui.stopBtn.Enable()
	}
}

func (ui *RootUI) selectedRun() (pipeline.RunInfo, bool) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	for _, r := range ui.snapshot {
		if r.ID == ui.selectedID {
			return r, true
		}
	}
	return pipeline.RunInfo{}, false
}

func (ui *RootUI) showOutcome(info pipeline.RunInfo) {
	text := ui.localization.GetText
	outcome := info.Outcome

	if !outcome.Completed() {
		dialog.ShowError(fmt.Errorf("%s: %s\n%v", text(KeyRunFailed), info.GetDisplayTitle(), outcome.Err()), ui.window)
		return
	}

	if ui.settings.GetAutoRevealOnComplete() {
		ui.reveal(outcome.OutputPath)
		return
	}

	message := fmt.Sprintf("%s\n%s", text(KeySavedTo), outcome.OutputPath)
	if len(outcome.Warnings) > 0 {
		message += "\n\n" + text(KeyCleanupWarnings)
	}
	d := dialog.NewConfirm(text(KeyRunCompleted), message, func(reveal bool) {
		if reveal {
			ui.reveal(outcome.OutputPath)
		}
	}, ui.window)
	d.SetConfirmText(text(KeyReveal))
	d.SetDismissText(text(KeyClose))
	d.Show()
}

func (ui *RootUI) reveal(path string) {
	if err := platform.OpenFileInManager(path); err != nil {
		dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyErrorOpeningFile), err), ui.window)
	}
}

func (ui *RootUI) createRunItem() fyne.CanvasObject {
	title := widget.NewLabel("")
	title.Truncation = fyne.TextTruncateEllipsis
	state := widget.NewLabel("")
	percent := widget.NewLabel("")
	right := container.New(layout.NewGridWrapLayout(fyne.NewSize(StateLabelWidth, state.MinSize().Height)), state)
	pct := container.New(layout.NewGridWrapLayout(fyne.NewSize(PercentLabelWidth, percent.MinSize().Height)), percent)
	return container.NewBorder(nil, nil, nil, container.NewHBox(right, pct), title)
}

func (ui *RootUI) updateRunItem(id widget.ListItemID, item fyne.CanvasObject) {
	ui.mu.Lock()
	if id < 0 || id >= len(ui.snapshot) {
		ui.mu.Unlock()
		return
	}
	info := ui.snapshot[id]
	ui.mu.Unlock()

	border := item.(*fyne.Container)
	title := border.Objects[0].(*widget.Label)
	hbox := border.Objects[1].(*fyne.Container)
	state := hbox.Objects[0].(*fyne.Container).Objects[0].(*widget.Label)
	percent := hbox.Objects[1].(*fyne.Container).Objects[0].(*widget.Label)

	title.SetText(info.GetDisplayTitle())
	state.SetText(stateText(info))
	percent.SetText(fmt.Sprintf(ProgressLabelFormat, info.Percent))
}

func stateText(info pipeline.RunInfo) string {
	if info.Outcome == nil {
		return string(info.State)
	}
	if info.Outcome.Completed() {
		return IconDone + " " + string(model.PipelineStateCompleted)
	}
	text := IconError + " " + string(model.PipelineStateFailed)
	if info.Outcome.Failure != nil {
		text += MiddleDotSeparator + string(info.Outcome.Failure.Kind)
	}
	return text
}

func outputDirLogs(outputDir string) string {
	return filepath.Join(outputDir, config.LogSubdirName)
}
