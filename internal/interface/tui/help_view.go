package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = listView
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
Escriba Library - Help
══════════════════════

FILE LIST
─────────
  ↑/↓, j/k     Navigate files
  Enter        Preview file
  Space, x     Add to / remove from completion context
  /            Filter by path
  r            Reload from GitHub
  ?            Show this help
  q            Quit

PREVIEW
───────
  j/k          Scroll line by line
  d/u          Scroll half page
  g/G          Jump to top/bottom
  Space, x     Add to / remove from completion context
  c            Copy file to clipboard
  esc          Back to file list
  q            Quit

Context files are sent along with every continue or revise
request for this project, in the web editor and 'escriba complete'.

Press any key to return to file list
`

	return helpStyle.Render(help)
}
