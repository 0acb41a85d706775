package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shampis/trialbot/internal/admin"
	"github.com/shampis/trialbot/internal/style"
)

var errKeysCancelled = errors.New("cancelled, no keys added")

// keysEditor collects pasted keys in a text area. Ctrl+D submits, Esc or
// Ctrl+C cancels.
type keysEditor struct {
	area      textarea.Model
	submitted bool
}

func newKeysEditor() keysEditor {
	area := textarea.New()
	area.Placeholder = "Paste keys, one per line"
	area.ShowLineNumbers = true
	area.CharLimit = 0
	area.MaxHeight = 0
	area.SetWidth(64)
	area.SetHeight(12)
	area.Focus()
	return keysEditor{area: area}
}

func (m keysEditor) Init() tea.Cmd {
	return textarea.Blink
}

func (m keysEditor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlD:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	return m, cmd
}

func (m keysEditor) View() string {
	n := len(admin.SplitKeys(m.area.Value()))
	return fmt.Sprintf("%s\n\n%s\n%s\n",
		style.Bold.Render("Add trial keys"),
		m.area.View(),
		style.Dim.Render(fmt.Sprintf("%d key(s) · ctrl+d to add · esc to cancel", n)),
	)
}

// editKeys runs the editor on a terminal and returns the submitted text.
func editKeys(in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(newKeysEditor(), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", fmt.Errorf("running key editor: %w", err)
	}
	m, ok := final.(keysEditor)
	if !ok || !m.submitted {
		return "", errKeysCancelled
	}
	return m.area.Value(), nil
}
