package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestFormNavigationAndSubmit(t *testing.T) {
	f := NewForm(Field{Label: "Name"}, Field{Label: "Amount"})
	assert.False(t, f.IsVisible())

	f.Show("New expense")
	assert.True(t, f.IsVisible())
	assert.Equal(t, 0, f.Focused())

	f, _, _ = f.Update(keyRunes("Lunch"))
	f, _, submitted := f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, submitted)
	assert.Equal(t, 1, f.Focused())

	f, _, _ = f.Update(keyRunes("12"))
	f, _, _ = f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 0, f.Focused())
	f, _, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})

	f, _, submitted = f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, submitted)
	assert.False(t, f.IsVisible())
	assert.Equal(t, []string{"Lunch", "12"}, f.Values())
}

func TestFormShowClears(t *testing.T) {
	f := NewForm(Field{Label: "Name"})
	f.Show("First")
	f.SetValue(0, "stale")
	f.Show("Second")
	assert.Equal(t, []string{""}, f.Values())
}

func TestFormEscapeCancels(t *testing.T) {
	f := NewForm(Field{Label: "Name"})
	f.Show("New")
	f, _, submitted := f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, submitted)
	assert.False(t, f.IsVisible())
}

func TestSingleFieldFormSubmitsOnEnter(t *testing.T) {
	f := NewForm(Field{Label: "Query"})
	f.Show("Search")
	f.SetValue(0, "du")
	f, _, _ = f.Update(keyRunes("ne"))
	f, _, submitted := f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, submitted)
	assert.False(t, f.IsVisible())
	assert.Equal(t, []string{"dune"}, f.Values())
}
