package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the TUI and blocks until the user quits. Downloads still
// running at that point are left to the caller to cancel.
func Run(ctx context.Context, backend Backend, category string) error {
	m := NewModel(ctx, backend, category)
	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	final, err := prog.Run()
	m.cancel()
	m.unsubscribe()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		var failed []string
		for _, id := range fm.jobOrder {
			js := fm.jobs[id]
			if js != nil && js.errText != "" {
				failed = append(failed, fmt.Sprintf("- %s: %s", js.title, js.errText))
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d download(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
		}
	}
	return nil
}
