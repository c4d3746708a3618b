package downloader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/util"
	"github.com/ronled86/ClipPilot/internal/util/deps"
)

var (
	// ErrVideoNotFound is returned for an ID that no search has produced.
	ErrVideoNotFound = errors.New("video not found")
	// ErrDownloaderMissing is returned when yt-dlp cannot be located.
	ErrDownloaderMissing = errors.New("yt-dlp not found")
	// ErrNoTarget is returned for a request with neither ID nor URL.
	ErrNoTarget = errors.New("no video id or url given")
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 10 * time.Minute

// Request asks for one download. URL wins over VideoID when both are set.
type Request struct {
	VideoID   string
	URL       string
	Title     string
	Format    model.MediaFormat
	Overrides model.Overrides
}

// Receipt describes a started job.
type Receipt struct {
	JobID        string            `json:"jobId"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	OutputPath   string            `json:"outputPath"`
	Format       model.MediaFormat `json:"format"`
	Quality      string            `json:"quality"`
	ActualFormat string            `json:"actualFormat"`
}

// Supervisor runs yt-dlp jobs and reports their progress.
type Supervisor struct {
	runner         util.Runner
	reporter       progress.Reporter
	findDownloader func() (string, error)
	locateFFmpeg   func() (string, bool)
	settings       func() model.DownloadSettings
	lookup         func(id string) (model.SearchResult, bool)
	timeout        time.Duration
	parser         Parser
	logger         *slog.Logger
	newID          func() string

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	id      string
	title   string
	proc    util.Process
	timer   *time.Timer
	tracker *Tracker
	// ready is closed once the job is registered; line callbacks wait on it.
	ready chan struct{}

	emitMu sync.Mutex
	ended  bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRunner injects a process runner (useful for testing).
func WithRunner(r util.Runner) Option {
	return func(s *Supervisor) { s.runner = r }
}

// WithReporter attaches the sink for job events.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Supervisor) { s.reporter = rp }
}

// WithDownloaderFinder sets how yt-dlp is located for each job.
func WithDownloaderFinder(fn func() (string, error)) Option {
	return func(s *Supervisor) { s.findDownloader = fn }
}

// WithFFmpegLocator sets how the bundled ffmpeg folder is located.
func WithFFmpegLocator(fn func() (string, bool)) Option {
	return func(s *Supervisor) { s.locateFFmpeg = fn }
}

// WithSettings sets the source of the saved download preferences.
func WithSettings(fn func() model.DownloadSettings) Option {
	return func(s *Supervisor) { s.settings = fn }
}

// WithLookup sets how video IDs are resolved to results.
func WithLookup(fn func(id string) (model.SearchResult, bool)) Option {
	return func(s *Supervisor) { s.lookup = fn }
}

// WithTimeout bounds each job. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStages overrides the heuristic stage percentages.
func WithStages(st StageProgress) Option {
	return func(s *Supervisor) { s.parser.Stages = st }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithIDGenerator replaces the job ID source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Supervisor) { s.newID = fn }
}

// NewSupervisor constructs a Supervisor with the provided options.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		timeout: DefaultTimeout,
		parser:  Parser{Stages: DefaultStages()},
		jobs:    make(map[string]*job),
	}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.ReporterFunc(func(progress.Event) {})
	}
	if s.findDownloader == nil {
		s.findDownloader = func() (string, error) { return deps.FindDownloader("", "") }
	}
	if s.settings == nil {
		s.settings = model.DefaultSettings
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newID == nil {
		s.newID = func() string { return "job-" + uuid.NewString() }
	}
	return s
}

// Enqueue validates req, starts yt-dlp and returns without waiting for it.
func (s *Supervisor) Enqueue(req Request) (Receipt, error) {
	target, title, err := s.resolve(req)
	if err != nil {
		return Receipt{}, err
	}

	dlPath, err := s.findDownloader()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrDownloaderMissing, err)
	}

	settings := req.Overrides.Apply(s.settings())
	format := req.Format
	if format == "" {
		format = settings.DefaultFormat
	}
	if format == "" {
		format = model.FormatMP4
	}

	outDir := settings.DownloadFolder
	if err := util.EnsureDir(outDir); err != nil {
		s.logger.Error("create output folder", slog.String("dir", outDir), slog.String("err", err.Error()))
	}

	b := Builder{OutputDir: outDir, LocateFFmpeg: s.ffmpegLocation}
	args := b.BuildArgs(target, format, settings)

	j := &job{
		id:      s.newID(),
		title:   title,
		tracker: NewTracker(),
		ready:   make(chan struct{}),
	}
	spec := util.CmdSpec{
		Path:       dlPath,
		Args:       args,
		Dir:        outDir,
		StdoutLine: func(line string) { s.onStdout(j, line) },
		StderrLine: func(line string) { s.onStderr(j, line) },
	}
	s.logger.Info("starting download",
		slog.String("job", j.id),
		slog.String("title", title),
		slog.String("cmd", util.ShellQuote(dlPath, args)))

	proc, err := s.runner.Start(spec)
	if err != nil {
		close(j.ready)
		return Receipt{}, fmt.Errorf("start %s: %w", filepath.Base(dlPath), err)
	}

	s.mu.Lock()
	j.proc = proc
	s.jobs[j.id] = j
	timeout := s.timeout
	j.timer = time.AfterFunc(timeout, func() {
		s.stop(j.id, fmt.Sprintf("Download timed out after %s", timeout), "timed out")
	})
	s.mu.Unlock()

	s.emit(j, progress.Event{JobID: j.id, Status: model.StatusPreparing, Message: "Preparing download"})
	close(j.ready)

	go s.wait(j)

	actual := ActualFormat(format, settings)
	return Receipt{
		JobID:        j.id,
		Title:        title,
		Message:      "Download started for: " + title,
		OutputPath:   filepath.Join(outDir, util.SanitizeTitle(title)+"."+actual),
		Format:       format,
		Quality:      Quality(format, settings),
		ActualFormat: actual,
	}, nil
}

func (s *Supervisor) resolve(req Request) (Target, string, error) {
	if req.URL != "" {
		title := req.Title
		if title == "" {
			title = req.URL
		}
		return Target{ID: req.VideoID, URL: req.URL}, title, nil
	}
	if req.VideoID == "" {
		return Target{}, "", ErrNoTarget
	}
	if s.lookup == nil {
		return Target{}, "", fmt.Errorf("%w: %s", ErrVideoNotFound, req.VideoID)
	}
	r, ok := s.lookup(req.VideoID)
	if !ok {
		return Target{}, "", fmt.Errorf("%w: %s", ErrVideoNotFound, req.VideoID)
	}
	title := r.Title
	if req.Title != "" {
		title = req.Title
	}
	return Target{ID: req.VideoID}, title, nil
}

func (s *Supervisor) ffmpegLocation() (string, bool) {
	if s.locateFFmpeg == nil {
		return "", false
	}
	dir, ok := s.locateFFmpeg()
	if !ok {
		s.logger.Warn("bundled ffmpeg not found, yt-dlp will search PATH")
	}
	return dir, ok
}

func (s *Supervisor) active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// remove is the single check-and-remove point shared by exit and cancel.
// Only the caller that gets a non-nil job may emit its terminal event.
func (s *Supervisor) remove(id string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	delete(s.jobs, id)
	if j.timer != nil {
		j.timer.Stop()
	}
	return j
}

func (s *Supervisor) onStdout(j *job, line string) {
	<-j.ready
	s.logger.Debug("yt-dlp", slog.String("job", j.id), slog.String("out", line))
	u, ok := s.parser.ParseLine(line)
	if !ok || j.tracker.Failed() || !s.active(j.id) {
		return
	}
	st, pct := j.tracker.Apply(u)
	s.emit(j, progress.Event{JobID: j.id, Progress: pct, Status: st, Message: u.Message})
}

// emit reports ev unless a terminal event for the job went out first.
// Terminal events are always reported.
func (s *Supervisor) emit(j *job, ev progress.Event) {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()
	if ev.Terminal() {
		j.ended = true
	} else if j.ended {
		return
	}
	s.reporter.Report(ev)
}

func (s *Supervisor) onStderr(j *job, line string) {
	<-j.ready
	s.logger.Debug("yt-dlp", slog.String("job", j.id), slog.String("err", line))
	if !j.tracker.RecordStderr(line) || !s.active(j.id) {
		return
	}
	_, pct := j.tracker.Snapshot()
	s.emit(j, progress.Event{
		JobID:    j.id,
		Progress: pct,
		Status:   model.StatusFailed,
		Message:  "Download failed",
		Error:    line,
	})
}

func (s *Supervisor) wait(j *job) {
	ex := j.proc.Wait()
	if s.remove(j.id) == nil {
		// Cancelled or timed out; that path already reported.
		return
	}
	_, pct := j.tracker.Snapshot()
	ev := progress.Event{JobID: j.id, Progress: pct}
	switch {
	case ex.Killed:
		ev.Status = model.StatusCancelled
		ev.Message = "Download cancelled"
		s.logger.Info("download killed", slog.String("job", j.id))
	case ex.Code == 0:
		ev.Status = model.StatusCompleted
		ev.Progress = 100
		ev.Message = "Download completed"
		s.logger.Info("download completed",
			slog.String("job", j.id),
			slog.String("title", j.title),
			slog.String("file", j.tracker.Destination()))
	default:
		ev.Status = model.StatusFailed
		ev.Message = "Download failed"
		ev.Error = fmt.Sprintf("exit code %d", ex.Code)
		s.logger.Error("download failed",
			slog.String("job", j.id),
			slog.String("title", j.title),
			slog.Int("code", ex.Code),
			slog.String("stderr", strings.Join(j.tracker.Stderr(), "\n")))
		s.diagnose(j)
	}
	s.emit(j, ev)
}

// diagnose logs hints for common failure causes found in stderr.
func (s *Supervisor) diagnose(j *job) {
	out := strings.Join(j.tracker.Stderr(), "\n")
	lower := strings.ToLower(out)
	if strings.Contains(lower, "ffmpeg") && (strings.Contains(lower, "not found") || strings.Contains(lower, "not installed")) {
		s.logger.Warn("ffmpeg is missing, audio extraction and merging need it",
			slog.String("job", j.id))
	}
	if strings.Contains(lower, "audio format") || strings.Contains(lower, "codec") {
		s.logger.Warn("audio format error: the codec may be unsupported for this video or conversion tools are missing, mp3 is the most compatible choice",
			slog.String("job", j.id))
	}
	if strings.Contains(lower, "aac") {
		s.logger.Warn("aac error: try mp3 or check that ffmpeg supports aac encoding",
			slog.String("job", j.id))
	}
}

// Cancel stops a running job. It returns false, with no side effects,
// for unknown or already finished jobs.
func (s *Supervisor) Cancel(jobID string) bool {
	return s.stop(jobID, "Download cancelled", "")
}

func (s *Supervisor) stop(jobID, message, errText string) bool {
	j := s.remove(jobID)
	if j == nil {
		return false
	}
	if err := j.proc.Kill(); err != nil {
		s.logger.Warn("kill downloader", slog.String("job", jobID), slog.String("err", err.Error()))
	}
	s.logger.Info("download stopped", slog.String("job", jobID), slog.String("reason", message))
	_, pct := j.tracker.Snapshot()
	s.emit(j, progress.Event{
		JobID:    jobID,
		Progress: pct,
		Status:   model.StatusCancelled,
		Message:  message,
		Error:    errText,
	})
	return true
}

// Active lists the IDs of running jobs.
func (s *Supervisor) Active() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// CancelAll cancels every running job and returns how many were stopped.
func (s *Supervisor) CancelAll() int {
	n := 0
	for _, id := range s.Active() {
		if s.Cancel(id) {
			n++
		}
	}
	return n
}
