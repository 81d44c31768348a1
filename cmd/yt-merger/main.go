package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/config"
	"github.com/ytget/yt-merger/internal/download"
	"github.com/ytget/yt-merger/internal/logging"
	"github.com/ytget/yt-merger/internal/merge"
	"github.com/ytget/yt-merger/internal/model"
	"github.com/ytget/yt-merger/internal/pipeline"
	"github.com/ytget/yt-merger/internal/platform"
	"github.com/ytget/yt-merger/internal/provider"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

// Exit codes
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// ProgressLogStep is the percent step between plain progress lines
const ProgressLogStep = 10

type cliFlags struct {
	configPath string
	outputDir  string
	resolution string
	retries    int
	parallel   int
	verbose    bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("yt-merger", flag.ContinueOnError)
	f := cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "config file (yaml, json or toml)")
	fs.StringVar(&f.outputDir, "o", "", "output directory")
	fs.StringVar(&f.resolution, "res", "", `video resolution, e.g. "1080p" or "best"`)
	fs.IntVar(&f.retries, "retries", 0, "download retries per stream")
	fs.IntVar(&f.parallel, "parallel", 0, "parallel runs for playlists")
	fs.BoolVar(&f.verbose, "v", false, "verbose logging")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: yt-merger [flags] <url>\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if f.version {
		fmt.Println("yt-merger", version)
		return ExitOK
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return ExitUsage
	}
	url := fs.Arg(0)

	opts, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}
	if err := applyFlags(fs, f, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}
	if err := logging.Setup(opts.LogLevel, opts.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := newOrchestrator(opts)
	defaults := pipeline.Request{
		OutputDir: opts.OutputDir,
		TempDir:   opts.EffectiveTempDir(),
		LogDir:    opts.LogDir,
	}

	if platform.IsPlaylistURL(url) {
		parser := platform.NewYTDLPParserService()
		parser.SetTimeout(opts.FetchTimeout)
		return runPlaylist(ctx, parser, orchestrator, defaults, opts.MaxParallel, url)
	}
	return runSingle(ctx, orchestrator, defaults, url)
}

// applyFlags overrides loaded options with the flags given on the command line
func applyFlags(fs *flag.FlagSet, f cliFlags, opts *config.Options) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "o":
			// a log dir derived from the old output dir follows the new one
			if opts.LogDir == filepath.Join(opts.OutputDir, config.LogSubdirName) {
				opts.LogDir = filepath.Join(f.outputDir, config.LogSubdirName)
			}
			opts.OutputDir = f.outputDir
		case "res":
			var res int
			res, err = parseResolution(f.resolution)
			opts.Resolution = res
		case "retries":
			opts.DownloadRetries = f.retries
		case "parallel":
			opts.MaxParallel = f.parallel
		case "v":
			if f.verbose {
				opts.LogLevel = logrus.DebugLevel.String()
			}
		}
	})
	return err
}

// parseResolution accepts "best", "1080p" or "1080"
func parseResolution(value string) (int, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == string(config.QualityBest) {
		return 0, nil
	}
	height, err := strconv.Atoi(strings.TrimSuffix(value, "p"))
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("invalid resolution %q", value)
	}
	return height, nil
}

func newOrchestrator(opts *config.Options) *pipeline.Orchestrator {
	yt := provider.NewYouTubeProvider()
	downloader := download.New(yt, download.WithRateLimit(opts.RateLimit))
	merger := merge.NewService(
		merge.WithFFmpegPath(opts.FFmpegPath),
		merge.WithLogger(logrus.StandardLogger()),
	)
	return pipeline.New(yt, downloader, merger,
		pipeline.WithPolicy(opts.Policy()),
		pipeline.WithRetries(opts.DownloadRetries, opts.RetryBackoff),
		pipeline.WithFetchTimeout(opts.FetchTimeout),
		pipeline.WithLogger(logrus.StandardLogger()),
	)
}

func runSingle(ctx context.Context, o *pipeline.Orchestrator, req pipeline.Request, url string) int {
	req.URL = url
	progress := newStageProgress(isatty.IsTerminal(os.Stderr.Fd()))
	outcome := o.Run(ctx, req, progress)
	return report(outcome)
}

func runPlaylist(ctx context.Context, parser *platform.YTDLPParserService, o *pipeline.Orchestrator, defaults pipeline.Request, maxParallel int, url string) int {
	playlist, err := parser.ParsePlaylist(ctx, url)
	if err != nil {
		logrus.WithError(err).Error("Failed to parse playlist")
		return ExitFailed
	}
	if !playlist.IsReadyForDownload() {
		logrus.Errorf("Playlist %s has no videos", url)
		return ExitFailed
	}
	logrus.Infof("Playlist %q: %d videos", playlist.Title, playlist.TotalVideos)

	svc := pipeline.NewService(o, defaults, maxParallel)

	var mu sync.Mutex
	svc.SetUpdateCallback(func(info pipeline.RunInfo) {
		if !info.IsFinished() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		video := playlist.FindVideoByRun(info.ID)
		if video == nil || video.Status == model.VideoStatusCompleted || video.Status == model.VideoStatusError {
			return
		}
		if info.Outcome.Completed() {
			playlist.MarkVideo(video.ID, model.VideoStatusCompleted, info.Outcome.OutputPath, "")
		} else {
			playlist.MarkVideo(video.ID, model.VideoStatusError, "", info.Outcome.Err().Error())
		}
		logrus.WithField("run_id", info.ID).Infof("%s: %s", info.GetDisplayTitle(), info.Outcome.Status)
	})

	playlist.UpdateStatus(model.PlaylistStatusRunning)
	for _, video := range playlist.Videos {
		mu.Lock()
		info, err := svc.AddRun(video.URL)
		if err != nil {
			playlist.MarkVideo(video.ID, model.VideoStatusError, "", err.Error())
		} else {
			video.RunID = info.ID
			video.Status = model.VideoStatusRunning
		}
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			for _, info := range svc.GetAllRuns() {
				_ = svc.StopRun(info.ID)
			}
		case <-done:
		}
	}()
	svc.Wait()
	close(done)

	mu.Lock()
	defer mu.Unlock()
	playlist.UpdateStatus(model.PlaylistStatusCompleted)
	completed := len(playlist.GetCompletedVideos())
	fmt.Printf("%d/%d videos merged into %s\n", completed, len(playlist.Videos), defaults.OutputDir)
	if playlist.HasErrors() {
		return ExitFailed
	}
	return ExitOK
}

func report(outcome pipeline.Outcome) int {
	if outcome.Completed() {
		for _, w := range outcome.Warnings {
			logrus.Warn(w.Error())
		}
		fmt.Println(outcome.OutputPath)
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", outcome.Status, outcome.Err())
	return ExitFailed
}

// stageProgress renders download progress, one bar per stream on a
// terminal and periodic log lines otherwise.
type stageProgress struct {
	interactive bool
	stage       model.PipelineState
	bar         *progressbar.ProgressBar
	percent     int
	lastLogged  int
}

func newStageProgress(interactive bool) *stageProgress {
	return &stageProgress{interactive: interactive}
}

// OnLog is a no-op; run logs already reach the standard logger.
func (p *stageProgress) OnLog(string) {}

func (p *stageProgress) OnState(state model.PipelineState) {
	p.finishBar()
	p.stage = state
	p.percent = 0
	p.lastLogged = -ProgressLogStep
	if p.interactive && state.IsDownloading() {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(string(state)),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
		)
	}
}

func (p *stageProgress) OnProgress(percent int) {
	p.percent = percent
	if p.bar != nil {
		_ = p.bar.Set(percent)
		return
	}
	if percent-p.lastLogged >= ProgressLogStep || percent == 100 {
		p.lastLogged = percent
		logrus.Infof("%s: %d%%", p.stage, percent)
	}
}

func (p *stageProgress) OnDone(pipeline.Outcome) {
	p.finishBar()
}

func (p *stageProgress) finishBar() {
	if p.bar == nil {
		return
	}
	if p.percent == 100 {
		_ = p.bar.Finish()
	} else {
		_ = p.bar.Clear()
	}
	fmt.Fprintln(os.Stderr)
	p.bar = nil
}
