package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

// Backend is what the TUI drives. *app.App implements it.
type Backend interface {
	Search(ctx context.Context, query string) (youtube.Page, error)
	SearchMore(ctx context.Context, query, pageToken string) (youtube.Page, error)
	Trending(ctx context.Context, categoryID string) (youtube.Page, error)
	MoreTrending(ctx context.Context, categoryID, pageToken string) (youtube.Page, error)
	Enqueue(req downloader.Request) (downloader.Receipt, error)
	Cancel(jobID string) bool
	Dismiss(jobID string) bool
	Preview(id string) (app.Preview, error)
	OpenFolder(path string) error
	Bus() *progress.Bus
}

type pane int

const (
	paneResults pane = iota
	paneJobs
)

type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend

	// Search state
	input     textinput.Model
	query     string
	trending  bool
	category  string
	results   []model.SearchResult
	notice    *youtube.Notice
	nextToken string
	loading   bool
	selected  int

	// Jobs
	jobOrder []string
	jobs     map[string]*jobState
	jobSel   int

	focus pane
	flash string
	fatal bool // flash is an error

	// UI
	width, height int
	styles        Styles

	// Internal event channel fed by the bus subscription
	eventCh     chan tea.Msg
	unsubscribe func()
}

func NewModel(ctx context.Context, backend Backend, category string) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	in := textinput.New()
	in.Placeholder = "Search YouTube"
	in.Prompt = "> "
	in.CharLimit = 200
	in.Width = 50
	in.Focus()

	m := Model{
		ctx:      c,
		cancel:   cancel,
		backend:  backend,
		input:    in,
		category: category,
		jobs:     make(map[string]*jobState),
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
	ch := m.eventCh
	m.unsubscribe = backend.Bus().Subscribe(func(e progress.Event) {
		// Block on terminal events to ensure they're delivered
		if e.Terminal() {
			select {
			case ch <- jobEventMsg{E: e}:
			case <-c.Done():
			}
			return
		}
		select {
		case ch <- jobEventMsg{E: e}:
		default:
		}
	})
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenEventsCmd(), m.trendingCmd(""))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if msg.Width > 20 {
			m.input.Width = min(msg.Width-10, 80)
		}

	case pageMsg:
		m.loading = false
		if msg.Err != nil {
			m.setFlash(msg.Err.Error(), true)
			break
		}
		if msg.Append {
			m.results = append(m.results, msg.Page.Items...)
		} else {
			m.results = msg.Page.Items
			m.selected = 0
			m.trending = msg.Trending
			m.query = msg.Query
		}
		m.notice = msg.Page.Notice
		m.nextToken = msg.Page.NextPageToken
		m.clampSelection()

	case enqueuedMsg:
		if msg.Err != nil {
			m.setFlash(msg.Err.Error(), true)
			break
		}
		rc := msg.Receipt
		js, ok := m.jobs[rc.JobID]
		if !ok {
			js = newJobState(rc, m.styles)
			m.jobs[rc.JobID] = js
			m.jobOrder = append(m.jobOrder, rc.JobID)
		} else {
			js.title, js.format, js.outputPath = rc.Title, rc.ActualFormat, rc.OutputPath
		}
		m.setFlash(rc.Message, false)
		return m, js.spinner.Tick

	case jobEventMsg:
		e := msg.E
		js, ok := m.jobs[e.JobID]
		if !ok {
			// The event beat the enqueue reply.
			js = newJobState(downloader.Receipt{JobID: e.JobID}, m.styles)
			m.jobs[e.JobID] = js
			m.jobOrder = append(m.jobOrder, e.JobID)
		}
		js.apply(e)
		return m, m.listenEventsCmd()

	case previewMsg:
		if msg.Err != nil {
			m.setFlash(msg.Err.Error(), true)
		} else {
			m.setFlash(fmt.Sprintf("Opened %s (%s)", msg.P.Title, msg.P.Duration), false)
		}

	case flashMsg:
		if msg.Err != nil {
			m.setFlash(msg.Err.Error(), true)
		} else {
			m.setFlash(msg.Text, false)
		}

	case quitMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			m.setFlash(youtube.ErrEmptyQuery.Error(), true)
			return m, nil
		}
		m.input.Blur()
		m.loading = true
		return m, m.searchCmd(q)
	case "esc":
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "/", "s":
		m.input.Focus()
		return m, textinput.Blink
	case "tab":
		if m.focus == paneResults && len(m.jobOrder) > 0 {
			m.focus = paneJobs
		} else {
			m.focus = paneResults
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "t":
		m.loading = true
		return m, m.trendingCmd(m.category)
	case "n":
		if m.nextToken == "" || m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.moreCmd()
	case "a":
		return m, m.enqueueCmd(model.FormatMP3)
	case "d", "v":
		return m, m.enqueueCmd(model.FormatMP4)
	case "p", "enter":
		if r, ok := m.selectedResult(); ok {
			return m, m.previewCmd(r.ID)
		}
	case "x":
		if js, ok := m.selectedJob(); ok {
			return m, m.cancelCmd(js.id)
		}
	case "c":
		if js, ok := m.selectedJob(); ok {
			if m.backend.Dismiss(js.id) || js.done() {
				m.removeJob(js.id)
			} else {
				m.setFlash("Job is still running, press x to cancel it", true)
			}
		}
	case "o":
		if js, ok := m.selectedJob(); ok {
			return m, m.openFolderCmd(js.outputPath)
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.fatal = isErr
}

func (m *Model) move(delta int) {
	if m.focus == paneJobs {
		m.jobSel += delta
	} else {
		m.selected += delta
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	m.selected = clamp(m.selected, len(m.results))
	m.jobSel = clamp(m.jobSel, len(m.jobOrder))
	if len(m.jobOrder) == 0 {
		m.focus = paneResults
	}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m Model) selectedResult() (model.SearchResult, bool) {
	if m.focus != paneResults || len(m.results) == 0 {
		return model.SearchResult{}, false
	}
	return m.results[m.selected], true
}

func (m Model) selectedJob() (*jobState, bool) {
	if m.focus != paneJobs || len(m.jobOrder) == 0 {
		return nil, false
	}
	return m.jobs[m.jobOrder[m.jobSel]], true
}

func (m *Model) removeJob(id string) {
	delete(m.jobs, id)
	for i, jid := range m.jobOrder {
		if jid == id {
			m.jobOrder = append(m.jobOrder[:i], m.jobOrder[i+1:]...)
			break
		}
	}
	m.clampSelection()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return quitMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) searchCmd(q string) tea.Cmd {
	return func() tea.Msg {
		page, err := m.backend.Search(m.ctx, q)
		return pageMsg{Page: page, Err: err, Query: q}
	}
}

func (m Model) trendingCmd(category string) tea.Cmd {
	return func() tea.Msg {
		page, err := m.backend.Trending(m.ctx, category)
		return pageMsg{Page: page, Err: err, Trending: true}
	}
}

func (m Model) moreCmd() tea.Cmd {
	token, query, trending, category := m.nextToken, m.query, m.trending, m.category
	return func() tea.Msg {
		var (
			page youtube.Page
			err  error
		)
		if trending {
			page, err = m.backend.MoreTrending(m.ctx, category, token)
		} else {
			page, err = m.backend.SearchMore(m.ctx, query, token)
		}
		return pageMsg{Page: page, Err: err, Append: true, Trending: trending, Query: query}
	}
}

func (m Model) enqueueCmd(format model.MediaFormat) tea.Cmd {
	r, ok := m.selectedResult()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		rc, err := m.backend.Enqueue(downloader.Request{VideoID: r.ID, Format: format})
		return enqueuedMsg{Receipt: rc, Err: err}
	}
}

func (m Model) previewCmd(id string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.backend.Preview(id)
		return previewMsg{P: p, Err: err}
	}
}

func (m Model) cancelCmd(jobID string) tea.Cmd {
	return func() tea.Msg {
		if !m.backend.Cancel(jobID) {
			return flashMsg{Text: "Job already finished"}
		}
		return flashMsg{Text: "Cancelling " + jobID}
	}
}

func (m Model) openFolderCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.OpenFolder(path); err != nil {
			return flashMsg{Err: err}
		}
		return flashMsg{Text: "Opened folder"}
	}
}
