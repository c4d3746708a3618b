package ui

import (
	"fmt"
	"strings"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

const maxVisibleResults = 10

func (m Model) View() string {
	parts := []string{m.viewHeader(), m.input.View()}
	if n := m.viewNotice(); n != "" {
		parts = append(parts, n)
	}
	parts = append(parts, m.viewResults())
	if len(m.jobOrder) > 0 {
		parts = append(parts, m.viewJobs())
	}
	if m.flash != "" {
		if m.fatal {
			parts = append(parts, m.styles.Error.Render(m.flash))
		} else {
			parts = append(parts, m.styles.Success.Render(m.flash))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) viewHeader() string {
	active := 0
	for _, id := range m.jobOrder {
		if !m.jobs[id].done() {
			active++
		}
	}
	title := m.styles.Title.Render("ClipPilot")
	var keys string
	if m.input.Focused() {
		keys = "enter: search • esc: browse • ctrl+c: quit"
	} else {
		keys = "/: search • t: trending • n: more • a: audio • d: video • p: preview • tab: jobs • x: cancel • c: dismiss • o: open folder • q: quit"
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Downloads: %d active • %s", active, keys))
	return title + "\n" + sub
}

func (m Model) viewNotice() string {
	if m.notice == nil {
		return ""
	}
	switch m.notice.Kind {
	case youtube.NoticeNoAPIKey:
		return m.styles.Warning.Render("No YouTube API key set, showing sample results. Set youtubeApiKey in settings or YOUTUBE_API_KEY.")
	case youtube.NoticeQuotaExceeded:
		return m.styles.Warning.Render("YouTube API quota exceeded. Try again later.")
	default:
		msg := m.notice.Message
		if msg == "" {
			msg = "YouTube API error"
		}
		return m.styles.Error.Render(msg + ", showing placeholder results.")
	}
}

func (m Model) viewResults() string {
	heading := "Search results"
	if m.trending {
		heading = "Trending"
	} else if m.query != "" {
		heading = fmt.Sprintf("Results for %q", m.query)
	}
	if m.loading {
		heading += " " + m.styles.Faint.Render("(loading…)")
	}
	if m.focus == paneResults {
		heading = "▸ " + heading
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(heading))
	b.WriteString("\n")
	if len(m.results) == 0 {
		b.WriteString(m.styles.Faint.Render("  nothing yet"))
		return b.String()
	}

	start := 0
	if m.selected >= maxVisibleResults {
		start = m.selected - maxVisibleResults + 1
	}
	end := min(start+maxVisibleResults, len(m.results))
	for i := start; i < end; i++ {
		r := m.results[i]
		line := fmt.Sprintf("%-48s  %-20s  %8s  %s",
			truncate(r.Title, 48), truncate(r.Channel, 20), r.Duration, r.PublishedAt)
		if lic := m.viewLicense(r.License); lic != "" {
			line += "  " + lic
		}
		if i == m.selected && m.focus == paneResults {
			b.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(m.results) > end || m.nextToken != "" {
		b.WriteString(m.styles.Faint.Render(fmt.Sprintf("  %d of %d shown", end-start, len(m.results))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewLicense(l model.License) string {
	switch l {
	case model.LicenseCC:
		return m.styles.LicenseCC.Render("CC")
	case model.LicenseMine:
		return m.styles.LicenseMine.Render("mine")
	}
	return ""
}

func (m Model) viewJobs() string {
	var b strings.Builder
	heading := "Downloads"
	if m.focus == paneJobs {
		heading = "▸ " + heading
	}
	b.WriteString(m.styles.Header.Render(heading))
	b.WriteString("\n")
	for i, id := range m.jobOrder {
		b.WriteString(m.viewJob(m.jobs[id], m.focus == paneJobs && i == m.jobSel))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewJob(js *jobState, selected bool) string {
	stageStyle := m.styles.JobInfo
	switch js.status {
	case model.StatusPreparing, model.StatusExtracting:
		stageStyle = m.styles.StageMeta
	case model.StatusDownloading:
		stageStyle = m.styles.StageDL
	case model.StatusConverting, model.StatusFinalizing:
		stageStyle = m.styles.StageEnc
	case model.StatusCompleted:
		stageStyle = m.styles.Success
	case model.StatusFailed:
		stageStyle = m.styles.Error
	case model.StatusCancelled:
		stageStyle = m.styles.Warning
	}

	title := js.title
	if title == "" {
		title = js.id
	}
	left := m.styles.JobTitle.Render(truncate(title, 48))
	if selected {
		left = m.styles.Selected.Render("› " + truncate(title, 48))
	}
	stage := stageStyle.Render(string(js.status))
	if js.format != "" {
		stage += " " + m.styles.Faint.Render(js.format)
	}

	var right string
	switch {
	case js.status == model.StatusCompleted:
		right = m.styles.Success.Render("✓ done")
	case js.status == model.StatusFailed:
		right = m.styles.Error.Render("✗ error")
	case js.status == model.StatusCancelled:
		right = m.styles.Warning.Render("✗ cancelled")
	case js.status == model.StatusPreparing:
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("starting")
	default:
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
	}

	info := js.message
	if js.errText != "" {
		info = js.errText
	} else if js.status == model.StatusCompleted && js.outputPath != "" {
		info = "Saved: " + js.outputPath
	}
	line1 := fmt.Sprintf("%s  %s", left, stage)
	line2 := m.styles.JobInfo.Render(info)
	return m.styles.Box.Render(line1 + "\n" + right + "\n" + line2)
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
