package tui

import "github.com/charmbracelet/lipgloss"

// Global styles used across views
var (
	// List view styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("170")).
				Bold(true)

	contextItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Bold(true).
				Foreground(lipgloss.Color("120")) // Light green - contrasts with purple selection

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	// Preview styles
	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan")).
			Bold(true)

	frontMatterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// Help view styles
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
