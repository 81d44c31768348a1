package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/config"
	"github.com/ytget/yt-merger/internal/download"
	"github.com/ytget/yt-merger/internal/logging"
	"github.com/ytget/yt-merger/internal/merge"
	"github.com/ytget/yt-merger/internal/pipeline"
	"github.com/ytget/yt-merger/internal/platform"
	"github.com/ytget/yt-merger/internal/provider"
	"github.com/ytget/yt-merger/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.yt-merger"
	AppName = "YT Merger"

	WindowWidth  = 800
	WindowHeight = 600
)

func main() {
	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	settings := config.NewSettings(myApp)
	opts := settings.Options()

	if err := logging.Setup(opts.LogLevel, ""); err != nil {
		logrus.WithError(err).Warn("Falling back to default logging")
	}
	logrus.Infof("%s v%s starting", AppName, version)

	if err := platform.CreateDirectoryIfNotExists(opts.OutputDir); err != nil {
		logrus.WithError(err).Warn("Failed to ensure output directory")
	}

	runs := newRunService(opts)

	myWindow := myApp.NewWindow(AppName + " v" + version)
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	parser := platform.NewYTDLPParserService()
	parser.SetTimeout(opts.FetchTimeout)

	ui.NewRootUI(myWindow, settings, runs, parser)

	myWindow.ShowAndRun()
}

func newRunService(opts *config.Options) *pipeline.Service {
	yt := provider.NewYouTubeProvider()
	downloader := download.New(yt, download.WithRateLimit(opts.RateLimit))
	merger := merge.NewService(
		merge.WithFFmpegPath(opts.FFmpegPath),
		merge.WithLogger(logrus.StandardLogger()),
	)

	orchestrator := pipeline.New(yt, downloader, merger,
		pipeline.WithPolicy(opts.Policy()),
		pipeline.WithRetries(opts.DownloadRetries, opts.RetryBackoff),
		pipeline.WithFetchTimeout(opts.FetchTimeout),
		pipeline.WithLogger(logrus.StandardLogger()),
	)

	defaults := pipeline.Request{
		OutputDir: opts.OutputDir,
		TempDir:   opts.EffectiveTempDir(),
		LogDir:    opts.LogDir,
	}
	return pipeline.NewService(orchestrator, defaults, opts.MaxParallel)
}
