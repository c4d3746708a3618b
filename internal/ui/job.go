package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
)

type jobState struct {
	id         string
	title      string
	format     string
	outputPath string

	status  model.JobStatus
	percent float64
	message string
	errText string

	spinner spinner.Model
	bar     bubblesprogress.Model
}

func newJobState(rc downloader.Receipt, styles Styles) *jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return &jobState{
		id:         rc.JobID,
		title:      rc.Title,
		format:     rc.ActualFormat,
		outputPath: rc.OutputPath,
		status:     model.StatusPreparing,
		message:    rc.Message,
		spinner:    sp,
		bar:        bar,
	}
}

func (js *jobState) done() bool { return js.status.IsTerminal() }

// apply folds an event in. Once the job has ended its status is fixed;
// a later event can only fill in a missing error.
func (js *jobState) apply(e progress.Event) {
	if js.done() {
		if e.Error != "" && js.errText == "" {
			js.errText = e.Error
		}
		return
	}
	js.status = e.Status
	js.percent = e.Progress
	if e.Message != "" {
		js.message = e.Message
	}
	if e.Error != "" && js.errText == "" {
		js.errText = e.Error
	}
}
