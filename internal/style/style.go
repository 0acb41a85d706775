// Package style holds the lipgloss styles used by the trialbot CLI.
package style

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Bold    = lipgloss.NewStyle().Bold(true)

	// Key renders a license key. Keys are copied by hand, so keep them plain
	// apart from the color.
	Key = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	// Account renders an account id or username.
	Account = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("→")
)

// Count renders n bold, in red when it is zero.
func Count(n int) string {
	if n == 0 {
		return Error.Render("0")
	}
	return Bold.Render(strconv.Itoa(n))
}
