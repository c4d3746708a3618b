package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

type fakeBackend struct {
	bus       *progress.Bus
	requests  []downloader.Request
	dismissed []string
	cancelled []string
}

func (f *fakeBackend) Search(_ context.Context, q string) (youtube.Page, error) {
	return youtube.Page{Items: youtube.SampleSearch(q), NextPageToken: "p2"}, nil
}
func (f *fakeBackend) SearchMore(context.Context, string, string) (youtube.Page, error) {
	return youtube.Page{Items: youtube.SampleSearch("more")}, nil
}
func (f *fakeBackend) Trending(context.Context, string) (youtube.Page, error) {
	return youtube.Page{Items: youtube.SampleTrending()}, nil
}
func (f *fakeBackend) MoreTrending(context.Context, string, string) (youtube.Page, error) {
	return youtube.Page{}, nil
}
func (f *fakeBackend) Enqueue(req downloader.Request) (downloader.Receipt, error) {
	f.requests = append(f.requests, req)
	return downloader.Receipt{JobID: "job-1", Title: "T", ActualFormat: "mp3", Message: "Download started for: T"}, nil
}
func (f *fakeBackend) Cancel(id string) bool {
	f.cancelled = append(f.cancelled, id)
	return true
}
func (f *fakeBackend) Dismiss(id string) bool {
	f.dismissed = append(f.dismissed, id)
	return true
}
func (f *fakeBackend) Preview(id string) (app.Preview, error) {
	return app.Preview{}, errors.New("not cached")
}
func (f *fakeBackend) OpenFolder(string) error { return nil }
func (f *fakeBackend) Bus() *progress.Bus      { return f.bus }

func newTestModel(t *testing.T) (Model, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{bus: progress.NewBus()}
	m := NewModel(context.Background(), fb, "10")
	t.Cleanup(func() {
		m.cancel()
		m.unsubscribe()
	})
	return m, fb
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestSearchFlow(t *testing.T) {
	m, _ := newTestModel(t)
	m.input.SetValue("lofi")
	m, cmd := update(t, m, key("enter"))
	if cmd == nil || !m.loading || m.input.Focused() {
		t.Fatalf("enter did not start a search: loading=%v focused=%v", m.loading, m.input.Focused())
	}
	m, _ = update(t, m, cmd())
	if m.query != "lofi" || len(m.results) != 3 || m.nextToken != "p2" {
		t.Fatalf("results = %d, query = %q, token = %q", len(m.results), m.query, m.nextToken)
	}

	m, cmd = update(t, m, key("n"))
	if cmd == nil {
		t.Fatal("n did not load more")
	}
	m, _ = update(t, m, cmd())
	if len(m.results) != 6 || m.nextToken != "" {
		t.Errorf("after more: %d results, token %q", len(m.results), m.nextToken)
	}
}

func TestEmptySearchFlashesError(t *testing.T) {
	m, _ := newTestModel(t)
	m, cmd := update(t, m, key("enter"))
	if cmd != nil || !m.fatal || m.flash != youtube.ErrEmptyQuery.Error() {
		t.Errorf("flash = %q fatal = %v", m.flash, m.fatal)
	}
}

func TestDownloadAndEvents(t *testing.T) {
	m, fb := newTestModel(t)
	m, _ = update(t, m, pageMsg{Page: youtube.Page{Items: youtube.SampleSearch("x")}, Query: "x"})
	m, _ = update(t, m, key("esc"))
	m, _ = update(t, m, key("down"))

	m, cmd := update(t, m, key("a"))
	if cmd == nil {
		t.Fatal("a did not enqueue")
	}
	// An event can arrive before the enqueue reply.
	m, _ = update(t, m, jobEventMsg{E: progress.Event{JobID: "job-1", Status: model.StatusDownloading, Progress: 12}})
	m, _ = update(t, m, cmd())

	if len(fb.requests) != 1 || fb.requests[0].VideoID != "def456" || fb.requests[0].Format != model.FormatMP3 {
		t.Fatalf("requests = %+v", fb.requests)
	}
	if len(m.jobOrder) != 1 {
		t.Fatalf("jobs = %v", m.jobOrder)
	}
	js := m.jobs["job-1"]
	if js.title != "T" || js.status != model.StatusDownloading || js.percent != 12 {
		t.Errorf("job = %+v", js)
	}

	m, _ = update(t, m, jobEventMsg{E: progress.Event{JobID: "job-1", Status: model.StatusFailed, Error: "ERROR: x"}})
	m, _ = update(t, m, jobEventMsg{E: progress.Event{JobID: "job-1", Status: model.StatusDownloading, Progress: 50}})
	if js.status != model.StatusFailed || js.errText != "ERROR: x" {
		t.Errorf("job after failure = %+v", js)
	}

	m, _ = update(t, m, key("tab"))
	if m.focus != paneJobs {
		t.Fatal("tab did not focus jobs")
	}
	m, _ = update(t, m, key("c"))
	if len(m.jobOrder) != 0 || len(fb.dismissed) != 1 {
		t.Errorf("dismiss left %v", m.jobOrder)
	}
	if m.focus != paneResults {
		t.Error("focus stayed on empty jobs pane")
	}
}

func TestJobStateKeepsFirstTerminalStatus(t *testing.T) {
	tests := []struct {
		name  string
		later progress.Event
	}{
		{"completed after failure", progress.Event{JobID: "job-1", Status: model.StatusCompleted, Progress: 100}},
		{"cancelled after failure", progress.Event{JobID: "job-1", Status: model.StatusCancelled, Message: "Download cancelled"}},
		{"progress after failure", progress.Event{JobID: "job-1", Status: model.StatusDownloading, Progress: 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js := newJobState(downloader.Receipt{JobID: "job-1", Title: "T"}, defaultStyles())
			js.apply(progress.Event{JobID: "job-1", Status: model.StatusDownloading, Progress: 30})
			js.apply(progress.Event{JobID: "job-1", Status: model.StatusFailed, Progress: 30, Message: "Download failed", Error: "ERROR: x"})
			js.apply(tt.later)

			if js.status != model.StatusFailed || js.percent != 30 || js.message != "Download failed" || js.errText != "ERROR: x" {
				t.Errorf("job = %+v", js)
			}
		})
	}
}

func TestCancelKey(t *testing.T) {
	m, fb := newTestModel(t)
	m, _ = update(t, m, enqueuedMsg{Receipt: downloader.Receipt{JobID: "job-9", Title: "T"}})
	m, _ = update(t, m, key("esc"))
	m, _ = update(t, m, key("tab"))
	_, cmd := update(t, m, key("x"))
	if cmd == nil {
		t.Fatal("x did not cancel")
	}
	if msg, ok := cmd().(flashMsg); !ok || msg.Err != nil {
		t.Errorf("cancel msg = %+v", msg)
	}
	if len(fb.cancelled) != 1 || fb.cancelled[0] != "job-9" {
		t.Errorf("cancelled = %v", fb.cancelled)
	}
}

func TestBusEventsReachModel(t *testing.T) {
	m, fb := newTestModel(t)
	fb.bus.Report(progress.Event{JobID: "job-2", Status: model.StatusCompleted, Progress: 100})
	msg := m.listenEventsCmd()()
	ev, ok := msg.(jobEventMsg)
	if !ok || ev.E.JobID != "job-2" {
		t.Fatalf("msg = %#v", msg)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 8, "this is…"},
		{"ünïcödé title", 5, "ünïc…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
