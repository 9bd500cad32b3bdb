package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/kiosk/internal/tui/styles"
)

// Field describes one form input
type Field struct {
	Label       string
	Placeholder string
	CharLimit   int
}

// Form is a modal with labelled inputs. Tab and shift+tab move between
// fields; enter on the last field submits. A one-field form doubles as a
// prompt.
type Form struct {
	visible bool
	title   string
	labels  []string
	inputs  []textinput.Model
	focus   int
}

func NewForm(fields ...Field) Form {
	f := Form{}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.Placeholder
		ti.CharLimit = fd.CharLimit
		if ti.CharLimit == 0 {
			ti.CharLimit = 60
		}
		ti.Width = 32
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		f.inputs = append(f.inputs, ti)
		f.labels = append(f.labels, fd.Label)
	}
	return f
}

// Show clears every field and focuses the first
func (f *Form) Show(title string) tea.Cmd {
	f.visible = true
	f.title = title
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	return f.setFocus(0)
}

func (f *Form) Hide() {
	f.visible = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f Form) IsVisible() bool {
	return f.visible
}

// Values returns the field contents in declaration order
func (f Form) Values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

// Focused returns the index of the field receiving keystrokes
func (f Form) Focused() int {
	return f.focus
}

// SetValue sets field i, cursor at the end
func (f *Form) SetValue(i int, v string) {
	if i >= 0 && i < len(f.inputs) {
		f.inputs[i].SetValue(v)
		f.inputs[i].CursorEnd()
	}
}

func (f *Form) setFocus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j != f.focus {
			f.inputs[j].Blur()
		}
	}
	return f.inputs[f.focus].Focus()
}

// Update handles input events, returns (form, cmd, submitted)
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd, bool) {
	if !f.visible || len(f.inputs) == 0 {
		return f, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			f.Hide()
			return f, nil, false
		case "tab", "down":
			return f, f.setFocus(f.focus + 1), false
		case "shift+tab", "up":
			return f, f.setFocus(f.focus - 1), false
		case "enter":
			if f.focus == len(f.inputs)-1 {
				f.Hide()
				return f, nil, true
			}
			return f, f.setFocus(f.focus + 1), false
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f Form) View() string {
	if !f.visible {
		return ""
	}

	labelWidth := 0
	for _, l := range f.labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}

	rows := []string{styles.ModalTitleStyle.Render(f.title)}
	for i, in := range f.inputs {
		label := styles.SubtitleStyle.Render(styles.Pad(f.labels[i], labelWidth))
		if i == f.focus {
			label = styles.AccentStyle.Render(styles.Pad(f.labels[i], labelWidth))
		}
		rows = append(rows, label+"  "+in.View())
	}
	hint := "tab next · enter save · esc cancel"
	if len(f.inputs) == 1 {
		hint = "enter submit · esc cancel"
	}
	rows = append(rows, "", styles.DimStyle.Render(hint))

	return styles.ModalStyle.Render(strings.Join(rows, "\n"))
}
