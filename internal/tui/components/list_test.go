package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/kiosk/internal/domain"
)

func bookItems(titles ...string) []domain.ListItem {
	items := make([]domain.ListItem, len(titles))
	for i, t := range titles {
		items[i] = domain.Book{Key: "/works/" + t, Title: t}
	}
	return items
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestListCursorBounds(t *testing.T) {
	l := NewList("Books")
	l.SetItems(bookItems("Dune", "Emma", "Ulysses"))

	l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, l.SelectedIndex())

	l.Update(keyRunes("G"))
	assert.Equal(t, 2, l.SelectedIndex())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, l.SelectedIndex())

	l.Update(keyRunes("g"))
	item, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Dune", item.GetTitle())
}

func TestListEmpty(t *testing.T) {
	l := NewList("Books")
	_, ok := l.Selected()
	assert.False(t, ok)
	assert.Contains(t, l.View(), "No items")
}

func TestSetItemsKeepsSelection(t *testing.T) {
	l := NewList("Books")
	l.SetItems(bookItems("Dune", "Emma", "Ulysses"))
	l.Update(tea.KeyMsg{Type: tea.KeyDown})

	l.SetItems(bookItems("Ulysses", "Emma"))
	item, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Emma", item.GetTitle())
}

func TestListFilter(t *testing.T) {
	l := NewList("Books")
	l.SetItems(bookItems("Dune", "Emma", "Dracula"))

	l.Update(keyRunes("/"))
	require.True(t, l.IsFilterTyping())

	l.Update(keyRunes("d"))
	assert.Equal(t, "d", l.FilterQuery())
	assert.Equal(t, 2, l.ItemCount())

	l.Update(keyRunes("un"))
	assert.Equal(t, 1, l.ItemCount())
	item, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Dune", item.GetTitle())

	// Enter keeps the filter but returns keys to navigation
	l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, l.IsFilterTyping())
	assert.True(t, l.IsFiltering())

	l.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, l.IsFiltering())
	assert.Equal(t, 3, l.ItemCount())
}

func TestCustomFilter(t *testing.T) {
	l := NewList("Books")
	l.SetItems(bookItems("Dune", "Emma"))
	l.SetFilter(func(query string, items []domain.ListItem) []FilterMatch {
		return []FilterMatch{{Index: 1}}
	})

	l.Update(keyRunes("/"))
	l.Update(keyRunes("x"))
	item, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Emma", item.GetTitle())
}

func TestMarker(t *testing.T) {
	l := NewList("Books")
	l.SetItems(bookItems("Dune"))
	l.SetMarker(func(item domain.ListItem) string { return "*" })
	assert.Contains(t, l.View(), "* Dune")
}

func TestTitleFilterRuneHighlights(t *testing.T) {
	matches := TitleFilter("ño", bookItems("Cien años"))
	require.Len(t, matches, 1)
	// "ñ" is two bytes; highlights are rune positions
	assert.Equal(t, []int{6, 7}, matches[0].Highlight)
}
