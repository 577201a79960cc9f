package ui

import (
	"github.com/charmbracelet/lipgloss"

	"tgvidbot/internal/progress"
)

// Styles is the TUI palette. Stage colors are keyed by pipeline stage.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	JobTitle lipgloss.Style
	JobInfo  lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
	Spinner  lipgloss.Style
	Stages   map[progress.Stage]lipgloss.Style
}

const (
	colorTelegram = lipgloss.Color("#229ED9")
	colorResolve  = lipgloss.Color("#60A5FA")
	colorTransfer = lipgloss.Color("#06B6D4")
	colorOK       = lipgloss.Color("#22C55E")
	colorFail     = lipgloss.Color("#EF4444")
)

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	ok := base.Foreground(colorOK)
	fail := base.Foreground(colorFail)
	resolve := base.Foreground(colorResolve)
	transfer := base.Foreground(colorTransfer)
	return Styles{
		Title:    base.Bold(true).Foreground(colorTelegram),
		Subtitle: base.Faint(true),
		JobTitle: base.Foreground(lipgloss.Color("#A3A3A3")),
		JobInfo:  base.Foreground(lipgloss.Color("#D1D5DB")),
		Success:  ok,
		Error:    fail,
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
		Spinner:  base.Foreground(colorTelegram),
		Stages: map[progress.Stage]lipgloss.Style{
			progress.StageQueued:      resolve,
			progress.StageResolving:   resolve,
			progress.StageDownloading: transfer,
			progress.StageMerging:     transfer,
			progress.StageUploading:   transfer,
			progress.StageCompleted:   ok,
			progress.StageError:       fail,
		},
	}
}

// Stage returns the style for s, falling back to JobInfo.
func (s Styles) Stage(st progress.Stage) lipgloss.Style {
	if style, ok := s.Stages[st]; ok {
		return style
	}
	return s.JobInfo
}
