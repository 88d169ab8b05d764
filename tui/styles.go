package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			Padding(0, 1)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Align(lipgloss.Center)

	messageHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)

	messageBodyStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	mentionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Reverse(true)

	dropdownStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8"))

	candidateStyle         = lipgloss.NewStyle().Padding(0, 1)
	selectedCandidateStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("5"))

	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
