package app

import (
	"sort"
	"sync"
	"time"

	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
)

// JobBoard keeps a DownloadJob per job until it is dismissed.
type JobBoard struct {
	mu   sync.Mutex
	jobs map[string]*model.DownloadJob
	now  func() time.Time
}

// NewJobBoard returns an empty board.
func NewJobBoard() *JobBoard {
	return &JobBoard{jobs: make(map[string]*model.DownloadJob), now: time.Now}
}

func (b *JobBoard) getLocked(id string) *model.DownloadJob {
	j, ok := b.jobs[id]
	if !ok {
		j = &model.DownloadJob{ID: id, Status: model.StatusPreparing, StartTime: b.now()}
		b.jobs[id] = j
	}
	return j
}

// Add records a started job. Events may already have arrived for it, so
// status and progress are left alone.
func (b *JobBoard) Add(rc downloader.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j := b.getLocked(rc.JobID)
	j.Title = rc.Title
	j.Format = rc.Format
	j.ActualFormat = rc.ActualFormat
	j.OutputPath = rc.OutputPath
	if j.Message == "" {
		j.Message = rc.Message
	}
}

// Report folds a progress event into the matching job.
func (b *JobBoard) Report(e progress.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j := b.getLocked(e.JobID)
	// The first terminal event wins. A stderr failure is usually followed
	// by the exit event, which may only add an error that is still missing.
	if j.Status.IsTerminal() {
		if e.Error != "" && j.Error == "" {
			j.Error = e.Error
		}
		return
	}
	j.Status = e.Status
	j.Progress = e.Progress
	if e.Message != "" {
		j.Message = e.Message
	}
	if e.Error != "" && j.Error == "" {
		j.Error = e.Error
	}
}

// Get returns a copy of one job.
func (b *JobBoard) Get(id string) (model.DownloadJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return model.DownloadJob{}, false
	}
	return *j, true
}

// Jobs returns copies of all jobs, oldest first.
func (b *JobBoard) Jobs() []model.DownloadJob {
	b.mu.Lock()
	out := make([]model.DownloadJob, 0, len(b.jobs))
	for _, j := range b.jobs {
		out = append(out, *j)
	}
	b.mu.Unlock()
	sort.SliceStable(out, func(i, k int) bool {
		if out[i].StartTime.Equal(out[k].StartTime) {
			return out[i].ID < out[k].ID
		}
		return out[i].StartTime.Before(out[k].StartTime)
	})
	return out
}

// Dismiss removes a finished job. Running jobs stay; cancel them first.
func (b *JobBoard) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok || !j.Status.IsTerminal() {
		return false
	}
	delete(b.jobs, id)
	return true
}

// ClearFinished removes every finished job and returns how many went.
func (b *JobBoard) ClearFinished() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, j := range b.jobs {
		if j.Status.IsTerminal() {
			delete(b.jobs, id)
			n++
		}
	}
	return n
}
