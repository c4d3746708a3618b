// Package app wires the search client, download supervisor, settings and
// event bus into the operations every front end (CLI, TUI, HTTP) calls.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/settings"
	"github.com/ronled86/ClipPilot/internal/util"
	"github.com/ronled86/ClipPilot/internal/util/deps"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

// ErrJobNotFound is returned for job IDs the board does not know.
var ErrJobNotFound = errors.New("job not found")

// App owns the long-lived services of one process.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	store  *settings.Store
	yt     *youtube.Client
	bus    *progress.Bus
	board  *JobBoard
	sup    *downloader.Supervisor
	opener util.Opener

	// options forwarded to the supervisor
	supOpts []downloader.Option
	ytOpts  []youtube.Option

	unsubscribe func()
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger handed to every service.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithSettingsStore replaces the settings store.
func WithSettingsStore(s *settings.Store) Option {
	return func(a *App) { a.store = s }
}

// WithOpener replaces the desktop opener (useful for testing).
func WithOpener(o util.Opener) Option {
	return func(a *App) { a.opener = o }
}

// WithSupervisorOptions passes extra options to the download supervisor.
func WithSupervisorOptions(opts ...downloader.Option) Option {
	return func(a *App) { a.supOpts = append(a.supOpts, opts...) }
}

// WithYouTubeOptions passes extra options to the search client.
func WithYouTubeOptions(opts ...youtube.Option) Option {
	return func(a *App) { a.ytOpts = append(a.ytOpts, opts...) }
}

// New builds an App from cfg. Call Close when done.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	if a.store == nil {
		a.store = settings.New(cfg.SettingsPath, settings.WithLogger(a.logger))
	}
	if a.opener == nil {
		a.opener = util.SystemOpener{}
	}

	ytOpts := []youtube.Option{
		youtube.WithLogger(a.logger),
		youtube.WithCache(youtube.NewCache(cfg.CacheSize)),
		youtube.WithRegion(cfg.RegionCode),
		youtube.WithDefaultCategory(cfg.TrendingCategory),
		youtube.WithPageSizes(cfg.SearchPageSize, cfg.TrendingPageSize),
	}
	a.yt = youtube.New(append(ytOpts, a.ytOpts...)...)

	a.bus = progress.NewBus()
	a.board = NewJobBoard()
	a.unsubscribe = a.bus.Subscribe(a.board.Report)

	supOpts := []downloader.Option{
		downloader.WithLogger(a.logger),
		downloader.WithReporter(a.bus),
		downloader.WithSettings(a.store.Current),
		downloader.WithLookup(a.yt.Cache().Get),
		downloader.WithTimeout(cfg.JobTimeout),
		downloader.WithDownloaderFinder(func() (string, error) {
			return deps.FindDownloader(cfg.DLBinary, cfg.ToolsDir)
		}),
		downloader.WithFFmpegLocator(func() (string, bool) {
			return deps.FindBundledFFmpeg(cfg.ToolsDir)
		}),
	}
	if st := cfg.Stages; st != (config.StageProgress{}) {
		supOpts = append(supOpts, downloader.WithStages(downloader.StageProgress(st)))
	}
	a.sup = downloader.NewSupervisor(append(supOpts, a.supOpts...)...)
	return a
}

// Close cancels running jobs and detaches the job board.
func (a *App) Close() {
	if n := a.sup.CancelAll(); n > 0 {
		a.logger.Info("cancelled running downloads on shutdown", slog.Int("count", n))
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Config returns the operator configuration.
func (a *App) Config() config.Config { return a.cfg }

// Bus returns the job event bus.
func (a *App) Bus() *progress.Bus { return a.bus }

// Settings returns the settings store.
func (a *App) Settings() *settings.Store { return a.store }

// APIKey resolves the Data API key: flag, env or config file first, then
// the key saved in settings.
func (a *App) APIKey() string {
	if a.cfg.APIKey != "" {
		return a.cfg.APIKey
	}
	return strings.TrimSpace(a.store.Current().YouTubeAPIKey)
}

// Search returns the first page of results for query.
func (a *App) Search(ctx context.Context, query string) (youtube.Page, error) {
	return a.yt.Search(ctx, query, a.APIKey())
}

// SearchMore returns the page after pageToken.
func (a *App) SearchMore(ctx context.Context, query, pageToken string) (youtube.Page, error) {
	return a.yt.SearchMore(ctx, query, pageToken, a.APIKey())
}

// Trending returns popular videos, optionally for one category.
func (a *App) Trending(ctx context.Context, categoryID string) (youtube.Page, error) {
	return a.yt.Trending(ctx, a.APIKey(), categoryID)
}

// MoreTrending returns the trending page after pageToken.
func (a *App) MoreTrending(ctx context.Context, categoryID, pageToken string) (youtube.Page, error) {
	return a.yt.MoreTrending(ctx, a.APIKey(), categoryID, pageToken)
}

// Categories lists the trending categories.
func (a *App) Categories() []youtube.Category { return youtube.Categories() }

// Lookup resolves a video ID through the cache, then the API.
func (a *App) Lookup(ctx context.Context, id string) (model.SearchResult, bool) {
	return a.yt.Lookup(ctx, id, a.APIKey())
}

// Permission is the answer to CanDownload.
type Permission struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// CanDownload reports whether id may be downloaded. Only known videos are.
// The license is reported but not enforced.
func (a *App) CanDownload(id string) Permission {
	r, ok := a.yt.Cache().Get(id)
	if !ok {
		return Permission{Allowed: false, Reason: "Video not found"}
	}
	return Permission{Allowed: true, Reason: fmt.Sprintf("Download allowed (license: %s)", r.License)}
}

// Enqueue starts a download and tracks it on the job board.
func (a *App) Enqueue(req downloader.Request) (downloader.Receipt, error) {
	rc, err := a.sup.Enqueue(req)
	if err != nil {
		return downloader.Receipt{}, err
	}
	a.board.Add(rc)
	return rc, nil
}

// Cancel stops a running job. It reports false for unknown or finished jobs.
func (a *App) Cancel(jobID string) bool { return a.sup.Cancel(jobID) }

// Dismiss removes a finished job from the board.
func (a *App) Dismiss(jobID string) bool { return a.board.Dismiss(jobID) }

// ClearFinished drops every finished job from the board.
func (a *App) ClearFinished() int { return a.board.ClearFinished() }

// Jobs lists the jobs on the board, oldest first.
func (a *App) Jobs() []model.DownloadJob { return a.board.Jobs() }

// Job returns one job from the board.
func (a *App) Job(jobID string) (model.DownloadJob, bool) { return a.board.Get(jobID) }

// Active lists running job IDs.
func (a *App) Active() []string { return a.sup.Active() }

// Preview is the answer to a preview request.
type Preview struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

// Preview opens a known video in the browser and describes it.
// A failure to launch the browser is logged only.
func (a *App) Preview(id string) (Preview, error) {
	r, ok := a.yt.Cache().Get(id)
	if !ok {
		return Preview{}, fmt.Errorf("%w: %s", downloader.ErrVideoNotFound, id)
	}
	p := Preview{URL: model.WatchURL(id), Title: r.Title, Duration: r.Duration}
	if err := a.opener.OpenURL(p.URL); err != nil {
		a.logger.Warn("open browser", slog.String("url", p.URL), slog.String("err", err.Error()))
	}
	return p, nil
}

// OpenFolder shows the folder that holds path (or the finished job's file).
func (a *App) OpenFolder(path string) error {
	if path == "" {
		return errors.New("no path given")
	}
	if err := a.opener.RevealFile(path); err != nil {
		return fmt.Errorf("open folder: %w", err)
	}
	return nil
}

// OpenJobFolder reveals the output file of a job on the board.
func (a *App) OpenJobFolder(jobID string) error {
	j, ok := a.board.Get(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return a.OpenFolder(j.OutputPath)
}

// GetSettings returns the current download preferences.
func (a *App) GetSettings() model.DownloadSettings { return a.store.Current() }

// SaveSettings replaces the download preferences.
func (a *App) SaveSettings(v model.DownloadSettings) error { return a.store.Save(v) }

// MergeSettings applies a partial JSON object over the current preferences.
func (a *App) MergeSettings(patch []byte) (model.DownloadSettings, error) {
	return a.store.Merge(patch)
}
