package components

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/kiosk/internal/domain"
	"github.com/mmcdole/kiosk/internal/tui/styles"
)

// FilterMatch is one item kept by a filter
type FilterMatch struct {
	Index     int   // Index into the unfiltered items
	Highlight []int // Rune positions in the title to emphasize
}

// FilterFunc selects and orders items for a query
type FilterFunc func(query string, items []domain.ListItem) []FilterMatch

// MarkerFunc renders a short prefix for an item (e.g. a favorite star)
type MarkerFunc func(item domain.ListItem) string

// listKeys are the navigation bindings shared by every list
var listKeys = struct {
	Up, Down, Top, Bottom, HalfUp, HalfDown, ClearFilter, Filter key.Binding
}{
	Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	HalfUp:      key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("C-u", "half page up")),
	HalfDown:    key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("C-d", "half page down")),
	ClearFilter: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
}

// List is a scrollable, filterable list of domain.ListItem
type List struct {
	title  string
	items  []domain.ListItem
	filter FilterFunc
	marker MarkerFunc

	cursor     int
	offset     int
	width      int
	height     int
	maxVisible int

	filterActive bool
	filterQuery  string
	filtered     []FilterMatch // nil when no filter query
	filterInput  textinput.Model
}

// NewList creates an empty list using the title fuzzy filter
func NewList(title string) *List {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.CharLimit = 60

	l := &List{
		title:       title,
		filter:      TitleFilter,
		filterInput: ti,
	}
	l.SetSize(60, 20)
	return l
}

// SetFilter replaces the filter used by "/"
func (l *List) SetFilter(f FilterFunc) {
	l.filter = f
	l.applyFilter()
}

// SetMarker sets the per-item prefix renderer; nil removes it
func (l *List) SetMarker(m MarkerFunc) {
	l.marker = m
}

func (l *List) SetTitle(title string) {
	l.title = title
}

// SetItems replaces the items, keeping the selection on the same ID when possible
func (l *List) SetItems(items []domain.ListItem) {
	var selectedID string
	if it, ok := l.Selected(); ok {
		selectedID = it.GetID()
	}

	l.items = items
	l.applyFilter()

	l.cursor = 0
	for i := 0; i < l.ItemCount(); i++ {
		if l.items[l.mapIndex(i)].GetID() == selectedID {
			l.cursor = i
			break
		}
	}
	l.ensureVisible()
}

func (l *List) Items() []domain.ListItem {
	return l.items
}

// ItemCount is the number of visible (filtered) items
func (l *List) ItemCount() int {
	if l.filtered != nil {
		return len(l.filtered)
	}
	return len(l.items)
}

// Selected returns the item under the cursor
func (l *List) Selected() (domain.ListItem, bool) {
	if l.ItemCount() == 0 {
		return nil, false
	}
	return l.items[l.mapIndex(l.cursor)], true
}

func (l *List) SelectedIndex() int {
	return l.cursor
}

func (l *List) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// IsFiltering reports whether a filter is applied or being typed
func (l *List) IsFiltering() bool {
	return l.filterActive
}

// IsFilterTyping reports whether keystrokes are going to the filter input
func (l *List) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

func (l *List) FilterQuery() string {
	return l.filterQuery
}

func (l *List) Update(msg tea.Msg) (*List, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}

	// Typing into the filter
	if l.IsFilterTyping() {
		switch keyMsg.String() {
		case "esc":
			l.clearFilter()
			return l, nil
		case "enter":
			// Accept filter, blur input to allow navigation
			l.filterInput.Blur()
			return l, nil
		case "backspace":
			if l.filterInput.Value() == "" {
				l.clearFilter()
				return l, nil
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		l.cursor, l.offset = 0, 0
		return l, cmd
	}

	switch {
	case key.Matches(keyMsg, listKeys.Filter):
		l.filterActive = true
		l.recalcMaxVisible()
		return l, l.filterInput.Focus()
	case l.filterActive && key.Matches(keyMsg, listKeys.ClearFilter):
		l.clearFilter()
		return l, nil
	}

	count := l.ItemCount()
	if count == 0 {
		return l, nil
	}

	switch {
	case key.Matches(keyMsg, listKeys.Down):
		if l.cursor < count-1 {
			l.cursor++
		}
	case key.Matches(keyMsg, listKeys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(keyMsg, listKeys.Top):
		l.cursor = 0
	case key.Matches(keyMsg, listKeys.Bottom):
		l.cursor = count - 1
	case key.Matches(keyMsg, listKeys.HalfDown):
		l.cursor = min(l.cursor+max(l.maxVisible/2, 1), count-1)
	case key.Matches(keyMsg, listKeys.HalfUp):
		l.cursor = max(l.cursor-max(l.maxVisible/2, 1), 0)
	}
	l.ensureVisible()
	return l, nil
}

func (l *List) View() string {
	itemWidth := max(l.width-4, 10)

	titleLine := styles.AccentStyle.Render(styles.Truncate(l.title, itemWidth))

	count := l.ItemCount()
	if count == 0 {
		emptyMsg := "No items"
		if l.filterQuery != "" {
			emptyMsg = "No matches"
		}
		content := titleLine + "\n \n" + styles.DimStyle.Render(emptyMsg)
		if l.filterActive {
			content += "\n" + l.renderFilterBar()
		}
		return content
	}

	end := min(l.offset+l.maxVisible, count)
	lines := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderItem(i, i == l.cursor, itemWidth))
	}

	// Always reserve the scroll hint lines to prevent layout shifts
	header := " "
	if l.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if l.filterActive {
		content += "\n" + l.renderFilterBar()
	}
	return content
}

func (l *List) renderItem(i int, selected bool, width int) string {
	item := l.items[l.mapIndex(i)]

	prefix := ""
	if l.marker != nil {
		prefix = l.marker(item) + " "
	}

	title := styles.Truncate(item.GetTitle(), width-lipgloss.Width(prefix)-2)
	var highlight []int
	if l.filtered != nil {
		highlight = l.filtered[i].Highlight
	}
	title = styles.HighlightMatches(title, highlight, selected)

	line := prefix + title
	if desc := item.GetDescription(); desc != "" {
		room := width - lipgloss.Width(line) - 3
		if room > 8 {
			line += "  " + styles.DimStyle.Render(styles.Truncate(desc, room))
		}
	}

	if selected {
		return styles.SelectedItemStyle.Width(width).Render(line)
	}
	return styles.NormalItemStyle.Width(width).Render(line)
}

func (l *List) renderFilterBar() string {
	countStr := ""
	if l.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.items)))
	}
	return l.filterInput.View() + countStr
}

func (l *List) recalcMaxVisible() {
	// title + header + footer (+ filter bar)
	chrome := 3
	if l.filterActive {
		chrome++
	}
	l.maxVisible = max(l.height-chrome, 1)
}

func (l *List) ensureVisible() {
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

func (l *List) clearFilter() {
	l.filterActive = false
	l.filterQuery = ""
	l.filtered = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.cursor, l.offset = 0, 0
	l.recalcMaxVisible()
}

func (l *List) applyFilter() {
	l.filterQuery = l.filterInput.Value()
	if l.filterQuery == "" || l.filter == nil {
		l.filtered = nil
		return
	}
	l.filtered = l.filter(l.filterQuery, l.items)
	if l.filtered == nil {
		l.filtered = []FilterMatch{}
	}
	if l.cursor >= len(l.filtered) {
		l.cursor = max(len(l.filtered)-1, 0)
	}
}

func (l *List) mapIndex(i int) int {
	if l.filtered != nil {
		return l.filtered[i].Index
	}
	return i
}

// TitleFilter is a case-insensitive subsequence match on titles, best first
func TitleFilter(query string, items []domain.ListItem) []FilterMatch {
	lowerTitles := make([]string, len(items))
	for i, it := range items {
		lowerTitles[i] = strings.ToLower(it.GetTitle())
	}

	matches := fuzzy.Find(strings.ToLower(query), lowerTitles)
	out := make([]FilterMatch, len(matches))
	for i, m := range matches {
		out[i] = FilterMatch{
			Index:     m.Index,
			Highlight: runeIndexes(m.Str, m.MatchedIndexes),
		}
	}
	return out
}

// runeIndexes converts byte offsets in s to rune positions
func runeIndexes(s string, byteIdx []int) []int {
	out := make([]int, 0, len(byteIdx))
	for _, b := range byteIdx {
		if b <= len(s) {
			out = append(out, utf8.RuneCountInString(s[:b]))
		}
	}
	return out
}
