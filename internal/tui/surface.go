package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"forma/internal/visual"
)

// Surface forwards scenes to a running Bubble Tea program. Scenes drawn before a
// program is attached are discarded.
type Surface struct {
	program atomic.Pointer[tea.Program]
}

var _ visual.Surface = (*Surface)(nil)

// Attach directs subsequent scenes to p.
func (s *Surface) Attach(p *tea.Program) { s.program.Store(p) }

func (s *Surface) Draw(scene *visual.Scene) error {
	if p := s.program.Load(); p != nil {
		p.Send(SceneMsg{Scene: scene})
	}
	return nil
}

// NewProgram builds the full-screen program for the live scene and attaches it
// to surface.
func NewProgram(ctrl Controller, title string, surface *Surface) *tea.Program {
	p := tea.NewProgram(NewModel(ctrl, title), tea.WithAltScreen())
	surface.Attach(p)
	return p
}
