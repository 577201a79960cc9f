// Package ui is the terminal job list behind `tgvidbot tui` and
// `tgvidbot resolve --tui`.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows one row per link until every job finishes or the user quits.
// It reports the failed links as a single error.
func Run(ctx context.Context, urls []string, opts Options) error {
	if opts.Resolver == nil {
		return errors.New("ui: resolver is required")
	}
	m := NewModel(ctx, urls, opts)
	defer m.cancel()
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return failures(fm)
	}
	return nil
}

func failures(m Model) error {
	var failed []string
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js.err != nil {
			failed = append(failed, fmt.Sprintf("- %s: %s", js.url, js.err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d job(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
}
