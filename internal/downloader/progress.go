package downloader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/util/format"
)

// StageProgress holds the percentages shown for phases yt-dlp does not
// measure. They are display guesses.
type StageProgress struct {
	Extracting      float64
	FormatSelection float64
	Converting      float64
	Finalizing      float64
}

// DefaultStages returns the stock heuristic values.
func DefaultStages() StageProgress {
	return StageProgress{Extracting: 20, FormatSelection: 50, Converting: 30, Finalizing: 90}
}

// Update is what one output line says about a job.
type Update struct {
	Status   model.JobStatus
	Progress float64
	// Measured is true for real percentage lines. Phase markers carry a
	// heuristic Progress instead.
	Measured    bool
	TotalBytes  int64 // 0 when yt-dlp does not know the size
	Speed       string
	ETA         time.Duration
	Destination string
	Message     string
}

// Parser turns yt-dlp stdout lines into Updates.
type Parser struct {
	Stages StageProgress
}

var (
	percentRe     = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	destinationRe = regexp.MustCompile(`^\[(?:download|ExtractAudio)\] Destination: (.+)$`)
	mergerRe      = regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`)
	tagRe         = regexp.MustCompile(`^\[([A-Za-z0-9_:]+)\]`)
)

// ParseLine parses with the default stage values.
func ParseLine(line string) (Update, bool) {
	return Parser{Stages: DefaultStages()}.ParseLine(line)
}

// ParseLine classifies one stdout line. ok is false for lines that say
// nothing about progress.
func (p Parser) ParseLine(line string) (Update, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Update{}, false
	}

	if strings.Contains(line, "has already been downloaded") {
		return Update{Status: model.StatusDownloading, Progress: 100, Measured: true, Message: "Already downloaded"}, true
	}
	if m := percentRe.FindStringSubmatch(line); m != nil {
		pct, _ := strconv.ParseFloat(m[1], 64)
		u := Update{Status: model.StatusDownloading, Progress: pct, Measured: true}
		if pct >= 100 {
			u.Progress = 100
		}
		u.Speed, u.ETA = speedAndETA(line)
		u.TotalBytes = totalBytes(line)
		u.Message = downloadMessage(u)
		return u, true
	}
	if m := destinationRe.FindStringSubmatch(line); m != nil {
		if strings.HasPrefix(line, "[ExtractAudio]") {
			return Update{Status: model.StatusConverting, Progress: p.Stages.Converting, Destination: m[1], Message: "Extracting audio"}, true
		}
		return Update{Status: model.StatusDownloading, Destination: m[1], Message: "Downloading"}, true
	}
	if m := mergerRe.FindStringSubmatch(line); m != nil {
		return Update{Status: model.StatusConverting, Progress: p.Stages.Converting, Destination: m[1], Message: "Merging formats"}, true
	}
	if strings.Contains(line, "Deleting original file") {
		return Update{Status: model.StatusFinalizing, Progress: p.Stages.Finalizing, Message: "Cleaning up"}, true
	}

	m := tagRe.FindStringSubmatch(line)
	if m == nil {
		return Update{}, false
	}
	switch tag := m[1]; {
	case tag == "info" && strings.Contains(line, "format"):
		return Update{Status: model.StatusExtracting, Progress: p.Stages.FormatSelection, Message: "Selecting formats"}, true
	case tag == "youtube" || tag == "info" || strings.HasPrefix(tag, "youtube:") || tag == "generic":
		return Update{Status: model.StatusExtracting, Progress: p.Stages.Extracting, Message: "Extracting video info"}, true
	case tag == "ExtractAudio" || tag == "ffmpeg" || tag == "Merger" ||
		tag == "VideoConvertor" || tag == "VideoRemuxer" || strings.HasPrefix(tag, "Fixup"):
		return Update{Status: model.StatusConverting, Progress: p.Stages.Converting, Message: "Converting"}, true
	}
	return Update{}, false
}

// speedAndETA pulls "at 1.50MiB/s" and "ETA 00:04" out of a download line.
func speedAndETA(line string) (string, time.Duration) {
	var speed string
	if idx := strings.Index(line, " at "); idx != -1 {
		fields := strings.Fields(line[idx+4:])
		if len(fields) > 0 && fields[0] != "Unknown" {
			speed = fields[0]
		}
	}
	var eta time.Duration
	if idx := strings.Index(line, "ETA "); idx != -1 {
		fields := strings.Fields(line[idx+4:])
		if len(fields) > 0 {
			if d, err := parseETA(fields[0]); err == nil {
				eta = d
			}
		}
	}
	return speed, eta
}

// totalBytes reads the size after " of ", which yt-dlp prefixes with ~
// when it is an estimate.
func totalBytes(line string) int64 {
	idx := strings.Index(line, " of ")
	if idx == -1 {
		return 0
	}
	fields := strings.Fields(line[idx+4:])
	if len(fields) == 0 {
		return 0
	}
	n, _ := format.ParseSize(fields[0])
	return n
}

func downloadMessage(u Update) string {
	msg := fmt.Sprintf("Downloading %.1f%%", u.Progress)
	if u.TotalBytes > 0 {
		msg += " of " + format.HumanizeBytes(u.TotalBytes)
	}
	if u.Speed != "" {
		msg += " at " + u.Speed
	}
	if u.ETA > 0 {
		msg += ", ETA " + u.ETA.String()
	}
	return msg
}

// parseETA parses duration strings like "00:04", "01:23:45", etc.
func parseETA(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, err
		}
		nums[i] = n
	}
	switch len(nums) {
	case 1:
		return time.Duration(nums[0]) * time.Second, nil
	case 2:
		return time.Duration(nums[0])*time.Minute + time.Duration(nums[1])*time.Second, nil
	case 3:
		return time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute + time.Duration(nums[2])*time.Second, nil
	default:
		return 0, fmt.Errorf("invalid ETA %q", s)
	}
}

// IsErrorLine reports stderr lines that fail the job immediately.
func IsErrorLine(line string) bool {
	return strings.Contains(line, "ERROR:") || strings.Contains(line, "FATAL:")
}

// Tracker folds a job's Updates into the displayed status and percentage.
// Measured percentages are shown as-is. A phase marker that stays in the
// current stage never lowers the value; one that enters a new stage
// starts from its own heuristic value.
type Tracker struct {
	mu          sync.Mutex
	status      model.JobStatus
	progress    float64
	destination string
	failed      bool
	stderr      []string
}

const stderrTail = 20

// NewTracker starts in the preparing state.
func NewTracker() *Tracker {
	return &Tracker{status: model.StatusPreparing}
}

// Apply records u and returns the status and progress to display.
func (t *Tracker) Apply(u Update) (model.JobStatus, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case u.Measured:
		t.progress = u.Progress
	case u.Status == t.status:
		t.progress = max(t.progress, u.Progress)
	default:
		t.progress = u.Progress
	}
	t.status = u.Status
	if u.Destination != "" {
		t.destination = u.Destination
	}
	return t.status, t.progress
}

// Snapshot returns the current status and progress.
func (t *Tracker) Snapshot() (model.JobStatus, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.progress
}

// Destination is the last output file yt-dlp reported.
func (t *Tracker) Destination() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destination
}

// RecordStderr keeps a short tail of stderr for diagnostics and reports
// whether the line fails the job. Only the first failure line counts.
func (t *Tracker) RecordStderr(line string) (failedNow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stderr = append(t.stderr, line)
	if len(t.stderr) > stderrTail {
		t.stderr = t.stderr[len(t.stderr)-stderrTail:]
	}
	if IsErrorLine(line) && !t.failed {
		t.failed = true
		return true
	}
	return false
}

// Failed reports whether an error line was seen.
func (t *Tracker) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Stderr returns the retained stderr tail.
func (t *Tracker) Stderr() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stderr...)
}
